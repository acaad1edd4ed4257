package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/logingate/internal/flagx"
	"github.com/dmitrijs2005/logingate/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "15m" or integer nanoseconds. Pointer fields distinguish
// "absent" from the zero value so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP   *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC   *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN        *string         `json:"database_dsn"`
	SessionSecret      *string         `json:"session_secret"`
	SessionTTL         *timex.Duration `json:"session_ttl"`
	QueryTimeout       *timex.Duration `json:"query_timeout"`
	BaseURL            *string         `json:"base_url"`
	SecureCookies      *bool           `json:"secure_cookies"`
	TrustProxy         *bool           `json:"trust_proxy"`
	GoogleClientID     *string         `json:"google_client_id"`
	GoogleClientSecret *string         `json:"google_client_secret"`
	FacebookAppID      *string         `json:"facebook_app_id"`
	FacebookAppSecret  *string         `json:"facebook_app_secret"`
	RedisAddr          *string         `json:"redis_addr"`
	RedisPassword      *string         `json:"redis_password"`
	LoginRatePerMinute *int            `json:"login_rate_per_minute"`
	LoginBurst         *int            `json:"login_burst"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson loads the file named by -c / -config in args, if any, and copies
// the fields it sets into config. A missing or malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.FacebookAppID, c.FacebookAppID)
	setString(&config.FacebookAppSecret, c.FacebookAppSecret)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.LogLevel, c.LogLevel)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.QueryTimeout != nil {
		config.QueryTimeout = c.QueryTimeout.Duration
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}
	if c.LoginRatePerMinute != nil {
		config.LoginRatePerMinute = *c.LoginRatePerMinute
	}
	if c.LoginBurst != nil {
		config.LoginBurst = *c.LoginBurst
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
