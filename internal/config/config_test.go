package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5005, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/image_info.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Auth.Secret)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camtrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8081
database:
  driver: mysql
  dsn: "user:pw@tcp(localhost:3306)/dify_test"
log:
  level: debug
  format: json
cache:
  enabled: true
  ttl: 1m
`), 0o644))

	t.Setenv("CAMTRAP_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "user:pw@tcp(localhost:3306)/dify_test", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Database.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "database.dsn")

	cfg = base()
	cfg.Database.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "database.path")

	cfg = base()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "port")
}
