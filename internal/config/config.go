// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

// Package config loads server configuration from a YAML file and
// command-line flags. Flags override file values.
package config

import (
	"errors"
	"io/fs"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	flag "github.com/spf13/pflag"
)

// Defaults applied before any file or flag value.
const (
	DefaultMetricsAddr = ":9090"
	DefaultLogFormat   = "json"
	DefaultSMTPPort    = 587
)

// Config is the full server configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Mail     MailConfig     `koanf:"mail"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// MailConfig holds SMTP settings for code delivery. When Host is empty the
// server falls back to logging codes instead of sending mail.
type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// MetricsConfig holds the observability endpoint settings.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Load builds a Config from the optional YAML file at path and the given
// flag set. A missing file is only an error when the path was set
// explicitly; flags always win over file values.
func Load(path string, flags *flag.FlagSet, pathExplicit bool) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if pathExplicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code("CONFIG_FILE_FAILED").
					With("path", path).
					Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = DefaultSMTPPort
	}
}

// Validate checks for settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.url").
			Errorf("database url is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("field", "log.format").
			Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "mail.from").
			Errorf("mail.from is required when mail.host is set")
	}
	return nil
}
