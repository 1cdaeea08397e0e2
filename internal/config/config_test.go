package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRPC_ADDR", "HTTP_ADDR", "API_TOKEN", "STORAGE_DRIVER", "SQLITE_PATH", "DB_CONN_STR",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"PRICES_BASE_URL", "PRICES_TIMEOUT", "NETWORTH_ENV",
	} {
		t.Setenv(key, "")
	}
	if v, ok := os.LookupEnv("PRICES_PROXY_URL"); ok {
		os.Unsetenv("PRICES_PROXY_URL")
		t.Cleanup(func() { os.Setenv("PRICES_PROXY_URL", v) })
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, "dev-token", cfg.Server.APIToken)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/networth.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "https://query1.finance.yahoo.com", cfg.Prices.BaseURL)
	assert.Equal(t, "https://api.allorigins.win/raw?url=", cfg.Prices.ProxyURL)
	assert.Equal(t, 10*time.Second, cfg.Prices.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Prices.LatestTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  grpc_addr: ":9090"
  api_token: file-token
storage:
  driver: postgres
prices:
  timeout: 3s
  latest_ttl: 1m
log:
  env: dev
`), 0o600))
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "wealth")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "env-token", cfg.Server.APIToken)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "host=db port=5432 user=postgres password=postgres dbname=wealth sslmode=disable", cfg.Storage.PostgresDSN)
	assert.Equal(t, 3*time.Second, cfg.Prices.Timeout)
	assert.Equal(t, time.Minute, cfg.Prices.LatestTTL)
	assert.Equal(t, "dev", cfg.Log.Env)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyProxyDisablesFallbackRoute(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICES_PROXY_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Empty(t, cfg.Prices.ProxyURL)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

		_, err := Load(path)

		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("bad timeout", func(t *testing.T) {
		t.Setenv("PRICES_TIMEOUT", "soon")

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.ErrorContains(t, err, "PRICES_TIMEOUT")
	})
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Storage.Driver = "mongo"
	assert.ErrorContains(t, cfg.Validate(), "storage.driver")

	cfg.Storage.Driver = DriverMemory
	cfg.Prices.Timeout = 0
	assert.ErrorContains(t, cfg.Validate(), "prices.timeout")
}
