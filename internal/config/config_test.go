package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Seed)
	assert.Equal(t, 30*time.Second, cfg.Storage.StatementTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Storage.SlowQuery)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.HTTP.Gzip)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("QUERYKIT_SERVER_PORT", "9090")
	t.Setenv("QUERYKIT_STORAGE_BACKEND", "postgres")
	t.Setenv("QUERYKIT_STORAGE_DSN", "postgres://localhost/shop")
	t.Setenv("QUERYKIT_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/shop", cfg.Storage.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
log:
  level: debug
storage:
  seed: false
  statement_timeout: 5s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Storage.Seed)
	assert.Equal(t, 5*time.Second, cfg.Storage.StatementTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, "storage.dsn is required"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, `storage.backend "redis"`},
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port 0"},
		{"pool sizes", func(c *Config) { c.Storage.MinConns = 20 }, "storage.min_conns 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
