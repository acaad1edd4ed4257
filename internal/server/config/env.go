package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays values from environment variables. Unset or empty
// variables leave the current value untouched; unparsable numbers and
// durations are ignored.
func parseEnv(c *Config) {
	c.EndpointAddrHTTP = getenv("HTTP_ADDR", c.EndpointAddrHTTP)
	c.EndpointAddrGRPC = getenv("GRPC_ADDR", c.EndpointAddrGRPC)
	c.DatabaseDSN = getenv("DATABASE_DSN", c.DatabaseDSN)
	c.SessionSecret = getenv("SESSION_SECRET", c.SessionSecret)
	c.SessionTTL = getenvDuration("SESSION_TTL", c.SessionTTL)
	c.QueryTimeout = getenvDuration("QUERY_TIMEOUT", c.QueryTimeout)
	c.BaseURL = getenv("BASE_URL", c.BaseURL)
	c.SecureCookies = getenvBool("SECURE_COOKIES", c.SecureCookies)
	c.TrustProxy = getenvBool("TRUST_PROXY", c.TrustProxy)
	c.GoogleClientID = getenv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getenv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.FacebookAppID = getenv("FACEBOOK_APP_ID", c.FacebookAppID)
	c.FacebookAppSecret = getenv("FACEBOOK_APP_SECRET", c.FacebookAppSecret)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.LoginRatePerMinute = getenvInt("LOGIN_RATE_PER_MINUTE", c.LoginRatePerMinute)
	c.LoginBurst = getenvInt("LOGIN_BURST", c.LoginBurst)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
