package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adventure.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.Session.AutoSaveInterval)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
session:
  auto_save: false
  auto_save_interval: 45s
saves:
  driver: redis
  redis_addr: redis:6379
  redis_ttl: 24h
log:
  level: debug
`)
	t.Setenv("ADVENTURE_SESSION_AUTO_SAVE_INTERVAL", "2m")
	t.Setenv("ADVENTURE_LOG_FORMAT", "json")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Session.AutoSave)
	assert.Equal(t, 2*time.Minute, cfg.Session.AutoSaveInterval, "env overrides file")
	assert.Equal(t, 10*time.Second, cfg.Session.SaveTimeout, "defaults survive")
	assert.Equal(t, "redis", cfg.Saves.Driver)
	assert.Equal(t, "redis:6379", cfg.Saves.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.Saves.RedisTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "sessoin:\n  auto_save: true\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = config.Load(writeConfig(t, "session:\n  auto_save_interval: soon\n"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "saves:\n  driver: floppy\n"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero interval", func(c *config.Config) { c.Session.AutoSaveInterval = 0 }, "auto_save_interval"},
		{"unknown story driver", func(c *config.Config) { c.Stories.Driver = "ftp" }, "stories.driver"},
		{"postgres without dsn", func(c *config.Config) { c.Saves.Driver = "postgres" }, "postgres_dsn"},
		{"rest without url", func(c *config.Config) { c.Analytics.Driver = "rest"; c.Backend.BaseURL = "" }, "base_url"},
		{"loam without path", func(c *config.Config) { c.Stories.Driver = "loam"; c.Stories.Path = "" }, "stories.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoError(t, config.Default().Validate())
}
