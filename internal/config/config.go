// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package config loads runtime configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/acctpool/acctpool/internal/auth"
)

// Config holds runtime settings for the account service.
type Config struct {
	// ListenAddr is the bind address for the public JSON API.
	ListenAddr string `koanf:"listen_addr"`

	// MetricsAddr is the bind address for metrics/health probes.
	// Empty disables the observability server.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL DSN (pgx). Required.
	DatabaseURL string `koanf:"database_url"`

	// TokenSecret is the HMAC secret for signing bearer tokens. Required.
	TokenSecret string `koanf:"token_secret"`

	// TokenTTL bounds bearer token validity.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string `koanf:"log_format"`
}

// Defaults for optional settings. Flags carry these so --help shows them.
const (
	DefaultListenAddr  = ":8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
)

// DefaultTokenTTL mirrors the codec's bound so flag help and verification
// agree.
const DefaultTokenTTL = auth.DefaultTokenTTL

// Flags registers the service's configuration flags on the given set.
// Flag names use dashes; they map to underscore config keys on load.
func Flags(fs *pflag.FlagSet) {
	fs.String("listen-addr", DefaultListenAddr, "JSON API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("token-secret", "", "HMAC secret for signing bearer tokens")
	fs.Duration("token-ttl", DefaultTokenTTL, "bearer token validity duration")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
}

// Load builds a Config from an optional YAML file overlaid with flags.
// Flags that the user set explicitly win over the file; flag defaults apply
// only where the file is silent.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	flagProvider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(flagProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and formats.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	if c.TokenSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("token_secret is required")
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}
