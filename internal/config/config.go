// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	File     string         `yaml:"-"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr" default:":8080"`
	ReadHeaderTimeout time.Duration `yaml:"read-header-timeout" default:"5s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown-timeout" default:"10s"`
}

// DatabaseConfig holds store settings. URL is either a postgres:// URL or a SQLite path/DSN.
type DatabaseConfig struct {
	URL          string        `yaml:"url" default:"./contacts.db"`
	MaxOpenConns int           `yaml:"max-open-conns" default:"10"`
	TxTimeout    time.Duration `yaml:"tx-timeout" default:"5s"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level       string `yaml:"level" default:"info"`
	Development bool   `yaml:"development"`
}

// Load builds a Config: defaults first, then the YAML file at path (skipped
// when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	c := new(Config)
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if path != "" {
		realpath, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrap(err, "resolve config path failed")
		}
		c.File = filepath.Clean(realpath)

		file, err := os.ReadFile(c.File)
		if err != nil {
			return nil, errors.Wrap(err, "read config file failed")
		}
		if err := yaml.Unmarshal(file, c); err != nil {
			return nil, errors.Wrap(err, "parse config file failed")
		}
		// fields present in the file but left empty fall back to defaults
		if err := defaults.Set(c); err != nil {
			return nil, errors.Wrap(err, "re-set default config failed")
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		if strings.Contains(port, ":") {
			c.Server.Addr = port
		} else {
			c.Server.Addr = ":" + port
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if v := os.Getenv("DB_TX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid DB_TX_TIMEOUT %q", v)
		}
		c.Database.TxTimeout = d
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
	if os.Getenv("LOG_DEV") == "1" {
		c.Log.Development = true
		if os.Getenv("LOG_LEVEL") == "" {
			c.Log.Level = "debug"
		}
	}
	return nil
}
