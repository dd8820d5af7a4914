package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToml = `
[development]
port = 9001
log_level = "debug"
store_backend = "sqlite"
sqlite_path = "/tmp/fitclub-dev.db"
daily_reset = true
allowed_origins = ["http://localhost:3000"]

[production]
host = "0.0.0.0"
port = 8080
log_level = "info"
logs_path = "/var/log/fitclub/service"
store_backend = "redis"
redis_host = "redis"
redis_db = 3
rate_limit_allowed_per_min = 30
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testToml), 0o600))
	return path
}

func TestLoad_Development(t *testing.T) {
	cfg, err := Load("dev", writeTestConfig(t))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "/tmp/fitclub-dev.db", cfg.SQLitePath)
	assert.True(t, cfg.DailyReset)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	// defaults
	assert.Equal(t, 64, cfg.MemoryStoreSizeMB)
	assert.Equal(t, 120, cfg.RateLimitAllowedPerMin)
	assert.Equal(t, "2112", cfg.PrometheusMetricsPort)
}

func TestLoad_Production(t *testing.T) {
	cfg, err := Load("Production", writeTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "redis", cfg.RedisHost)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30, cfg.RateLimitAllowedPerMin)
	assert.False(t, cfg.DailyReset)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("staging", writeTestConfig(t))
	assert.EqualError(t, err, "unknown env: staging")

	_, err = Load("dev", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte("[production]\nport = 1\n"), 0o600))
	_, err = Load("dev", empty)
	assert.EqualError(t, err, "no config section for env: dev")
}
