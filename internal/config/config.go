// Package config loads lazyset settings from an optional YAML file and
// LAZYSET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: LAZYSET_DATABASE_PATH
// sets database.path.
const EnvPrefix = "LAZYSET"

// Config holds lazyset configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	// Models is the directory of CUE entity declarations.
	Models  string        `mapstructure:"models"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Report prints resolution counters after CLI commands.
	Report bool `mapstructure:"report"`
}

var (
	ErrDatabasePathRequired = errors.New("database.path is required")
	ErrInvalidLogFormat     = errors.New(`log.format must be "text" or "json"`)
)

var defaults = map[string]any{
	"database.path":         "lazyset.db",
	"database.busy_timeout": "5s",
	"models":                "models",
	"log.level":             "warn",
	"log.format":            "text",
	"metrics.report":        false,
}

// Load reads configuration. path names a YAML file; when empty, a
// lazyset.yaml in the working directory is used if present. Environment
// variables override the file, and defaults fill the rest.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("lazyset")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return ErrDatabasePathRequired
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative: %s", c.Database.BusyTimeout)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
