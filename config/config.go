// Package config defines process configuration and its loading order.
//
// Precedence (low -> high): built-in defaults, optional YAML file,
// DOCUSTREAM_* environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file path.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" output.
	LogFormat string `koanf:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Addr:      ":8080",
		DBPath:    "docustream.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config by layering defaults, an optional file, and env
// vars. Pass path="" to use DOCUSTREAM_CONFIG or skip the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("DOCUSTREAM_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: DOCUSTREAM_ADDR -> addr, DOCUSTREAM_DB_PATH
	// -> db_path. Underscores are preserved to match the koanf tags.
	envProvider := env.Provider("DOCUSTREAM_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "docustream_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	return &cfg, nil
}
