// Package config handles configuration for the auth service, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the driveauth server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DirectoryBaseURL: base URL of the Identity Directory API.
//   - DirectoryToken: static bearer credential for Directory calls.
//   - DirectoryTimeout: per-call Directory timeout.
//   - SessionSecret: HMAC secret for signing session cookies (HS256).
//     Do not use test defaults in prod.
//   - SessionTTL / RememberTTL: server-side session record lifetimes,
//     default and "remember me".
//   - DatabaseDSN: PostgreSQL DSN for the persistent session store.
//     Empty selects the in-memory store.
type Config struct {
	EndpointAddr     string
	DirectoryBaseURL string
	DirectoryToken   string
	DirectoryTimeout time.Duration
	SessionSecret    string
	SessionTTL       time.Duration
	RememberTTL      time.Duration
	DatabaseDSN      string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DirectoryBaseURL = "https://bcs.api.bdpa.org/v2"
	c.DirectoryToken = ""
	c.DirectoryTimeout = 10 * time.Second
	c.SessionSecret = "secretKey"
	c.SessionTTL = 24 * time.Hour
	c.RememberTTL = 30 * 24 * time.Hour
	c.DatabaseDSN = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
