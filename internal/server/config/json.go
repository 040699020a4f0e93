package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avdeev/driveauth/internal/flagx"
	"github.com/avdeev/driveauth/internal/timex"
)

// JsonConfig is the JSON-file DTO for Config. Duration fields accept both
// strings such as "30s" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DirectoryBaseURL string         `json:"directory_base_url"`
	DirectoryToken   string         `json:"directory_token"`
	DirectoryTimeout timex.Duration `json:"directory_timeout"`
	SessionSecret    string         `json:"session_secret"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	RememberTTL      timex.Duration `json:"remember_ttl"`
	DatabaseDSN      string         `json:"database_dsn"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. Without the flag nothing is
// loaded. An unreadable or invalid file panics: the server must not start
// on half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DirectoryBaseURL = c.DirectoryBaseURL
	config.DirectoryToken = c.DirectoryToken
	config.DirectoryTimeout = time.Duration(c.DirectoryTimeout.Duration)
	config.SessionSecret = c.SessionSecret
	config.SessionTTL = time.Duration(c.SessionTTL.Duration)
	config.RememberTTL = time.Duration(c.RememberTTL.Duration)
	config.DatabaseDSN = c.DatabaseDSN
}
