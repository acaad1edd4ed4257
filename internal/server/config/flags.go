package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/logingate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   session secret
//	-t int      session TTL, minutes
//	-q int      store query timeout, seconds
//	-b string   public base URL
//	-r string   Redis address
//	-l string   log level
//
// args are filtered with flagx.FilterArgs first so flags owned by other
// components (-c/-config) do not collide. Parse errors panic.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-q", "-b", "-r", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session TTL (in minutes)")
	queryTimeout := fs.Int("q", int(config.QueryTimeout.Seconds()), "query timeout (in seconds)")

	fs.StringVar(&config.BaseURL, "b", config.BaseURL, "public base URL")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address for sessions")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.QueryTimeout = time.Duration(*queryTimeout) * time.Second
}
