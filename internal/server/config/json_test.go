package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	full := writeTempJSON(t, map[string]any{
		"endpoint_addr_http":    ":8081",
		"endpoint_addr_grpc":    ":9091",
		"database_dsn":          "postgres://json",
		"session_secret":        "json-secret",
		"session_ttl":           "2h",
		"query_timeout":         "3s",
		"base_url":              "https://school.example",
		"secure_cookies":        true,
		"trust_proxy":           true,
		"google_client_id":      "gid",
		"google_client_secret":  "gsecret",
		"facebook_app_id":       "fid",
		"facebook_app_secret":   "fsecret",
		"redis_addr":            "redis:6379",
		"redis_password":        "rpass",
		"login_rate_per_minute": 20,
		"login_burst":           3,
		"log_level":             "warn",
	})

	t.Run("loads every field", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", full})

		assert.Equal(t, ":8081", cfg.EndpointAddrHTTP)
		assert.Equal(t, ":9091", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "json-secret", cfg.SessionSecret)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
		assert.Equal(t, "https://school.example", cfg.BaseURL)
		assert.True(t, cfg.SecureCookies)
		assert.True(t, cfg.TrustProxy)
		assert.True(t, cfg.GoogleEnabled())
		assert.True(t, cfg.FacebookEnabled())
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "rpass", cfg.RedisPassword)
		assert.Equal(t, 20, cfg.LoginRatePerMinute)
		assert.Equal(t, 3, cfg.LoginBurst)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"base_url": "https://other.example"})

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", partial})

		assert.Equal(t, "https://other.example", cfg.BaseURL)
		assert.Equal(t, ":3000", cfg.EndpointAddrHTTP)
		assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		cfg := &Config{EndpointAddrHTTP: "defaults:1234"}
		parseJson(cfg, []string{"-a", ":1"})
		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", "/nonexistent/gate.json"}) })
	})
}
