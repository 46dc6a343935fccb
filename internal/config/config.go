// Package config loads the adventure configuration.
//
// Values come from, in increasing precedence: code defaults, an optional YAML
// file, and ADVENTURE_* environment variables (e.g.
// ADVENTURE_SESSION_AUTO_SAVE_INTERVAL=1m, ADVENTURE_SAVES_DRIVER=redis).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ADVENTURE"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Session   SessionConfig   `mapstructure:"session" envconfig:"session"`
	Stories   StoriesConfig   `mapstructure:"stories" envconfig:"stories"`
	Saves     SavesConfig     `mapstructure:"saves" envconfig:"saves"`
	Analytics AnalyticsConfig `mapstructure:"analytics" envconfig:"analytics"`
	Backend   BackendConfig   `mapstructure:"backend" envconfig:"backend"`
	HTTP      HTTPConfig      `mapstructure:"http" envconfig:"http"`
	Log       LogConfig       `mapstructure:"log" envconfig:"log"`
}

// SessionConfig holds per-session defaults.
type SessionConfig struct {
	AutoSave         bool          `mapstructure:"auto_save" envconfig:"auto_save"`
	AutoSaveInterval time.Duration `mapstructure:"auto_save_interval" envconfig:"auto_save_interval"`
	SaveTimeout      time.Duration `mapstructure:"save_timeout" envconfig:"save_timeout"`
}

// StoriesConfig selects where story graphs come from.
type StoriesConfig struct {
	Driver string `mapstructure:"driver" envconfig:"driver"` // file, loam, rest
	Path   string `mapstructure:"path" envconfig:"path"`
}

// SavesConfig selects the save store.
type SavesConfig struct {
	Driver string `mapstructure:"driver" envconfig:"driver"` // none, memory, file, redis, postgres, rest
	Path   string `mapstructure:"path" envconfig:"path"`

	RedisAddr     string        `mapstructure:"redis_addr" envconfig:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" envconfig:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" envconfig:"redis_db"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl" envconfig:"redis_ttl"`

	PostgresDSN string `mapstructure:"postgres_dsn" envconfig:"postgres_dsn"`
}

// AnalyticsConfig selects where analytics events go.
type AnalyticsConfig struct {
	Driver     string        `mapstructure:"driver" envconfig:"driver"` // none, log, rest
	BufferSize int           `mapstructure:"buffer_size" envconfig:"buffer_size"`
	Timeout    time.Duration `mapstructure:"timeout" envconfig:"timeout"`
}

// BackendConfig is the story backend used by the rest drivers.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" envconfig:"base_url"`
	Token   string `mapstructure:"token" envconfig:"token"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr" envconfig:"addr"`
	Metrics bool   `mapstructure:"metrics" envconfig:"metrics"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"level"`
	Format string `mapstructure:"format" envconfig:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			AutoSave:         true,
			AutoSaveInterval: 30 * time.Second,
			SaveTimeout:      10 * time.Second,
		},
		Stories: StoriesConfig{Driver: "file", Path: "stories"},
		Saves:   SavesConfig{Driver: "file", Path: ".adventure/saves", RedisAddr: "localhost:6379"},
		Analytics: AnalyticsConfig{
			Driver:     "log",
			BufferSize: 256,
			Timeout:    5 * time.Second,
		},
		Backend: BackendConfig{BaseURL: "http://localhost:8000/api"},
		HTTP:    HTTPConfig{Addr: ":8080", Metrics: true},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty; a missing file at an
// explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overlay: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected.
func decodeYAML(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

var (
	storyDrivers     = []string{"file", "loam", "rest"}
	saveDrivers      = []string{"none", "memory", "file", "redis", "postgres", "rest"}
	analyticsDrivers = []string{"none", "log", "rest"}
	logFormats       = []string{"text", "json"}
)

// Validate rejects unknown drivers, non-positive intervals and missing
// driver settings. All problems are reported together.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(oneOf(c.Stories.Driver, storyDrivers), "stories.driver %q must be one of %s", c.Stories.Driver, strings.Join(storyDrivers, ", "))
	check(oneOf(c.Saves.Driver, saveDrivers), "saves.driver %q must be one of %s", c.Saves.Driver, strings.Join(saveDrivers, ", "))
	check(oneOf(c.Analytics.Driver, analyticsDrivers), "analytics.driver %q must be one of %s", c.Analytics.Driver, strings.Join(analyticsDrivers, ", "))
	check(oneOf(c.Log.Format, logFormats), "log.format %q must be one of %s", c.Log.Format, strings.Join(logFormats, ", "))

	check(c.Session.AutoSaveInterval > 0, "session.auto_save_interval must be positive")
	check(c.Session.SaveTimeout > 0, "session.save_timeout must be positive")
	check(c.Analytics.BufferSize > 0, "analytics.buffer_size must be positive")
	check(c.Analytics.Timeout > 0, "analytics.timeout must be positive")
	check(c.Saves.RedisTTL >= 0, "saves.redis_ttl must not be negative")

	switch c.Stories.Driver {
	case "file", "loam":
		check(c.Stories.Path != "", "stories.path is required for the %s driver", c.Stories.Driver)
	}
	switch c.Saves.Driver {
	case "file":
		check(c.Saves.Path != "", "saves.path is required for the file driver")
	case "redis":
		check(c.Saves.RedisAddr != "", "saves.redis_addr is required for the redis driver")
	case "postgres":
		check(c.Saves.PostgresDSN != "", "saves.postgres_dsn is required for the postgres driver")
	}
	if c.Stories.Driver == "rest" || c.Saves.Driver == "rest" || c.Analytics.Driver == "rest" {
		check(c.Backend.BaseURL != "", "backend.base_url is required for rest drivers")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidConfig, strings.Join(problems, "\n- "))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
