package config

import (
	"flag"
	"os"
	"time"

	"github.com/avdeev/driveauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-u string   Identity Directory base URL
//	-b string   Directory bearer token
//	-o int      Directory call timeout, seconds
//	-s string   session cookie signing secret
//	-t int      session TTL, minutes
//	-r int      remember-me TTL, minutes
//	-d string   PostgreSQL DSN for the session store (empty = in-memory)
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-b", "-o", "-s", "-t", "-r", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DirectoryBaseURL, "u", config.DirectoryBaseURL, "identity directory base URL")
	fs.StringVar(&config.DirectoryToken, "b", config.DirectoryToken, "identity directory bearer token")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session cookie signing secret")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN for the session store")

	directoryTimeout := fs.Int("o", int(config.DirectoryTimeout.Seconds()), "directory timeout (in seconds)")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session ttl (in minutes)")
	rememberTTL := fs.Int("r", int(config.RememberTTL.Minutes()), "remember-me ttl (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DirectoryTimeout = time.Duration(*directoryTimeout) * time.Second
	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.RememberTTL = time.Duration(*rememberTTL) * time.Minute
}
