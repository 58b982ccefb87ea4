// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package config loads server configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// DefaultPath is where Load looks for a config file when none is named.
const DefaultPath = "parleyd.yaml"

// Config holds the server configuration.
type Config struct {
	ListenAddr      string `koanf:"listen_addr"`      // chat listener, host:port
	MaxClients      int    `koanf:"max_clients"`      // concurrent session bound
	CredentialsFile string `koanf:"credentials_file"` // username:hash flat file
	MetricsAddr     string `koanf:"metrics_addr"`     // observability HTTP listener
	LogFormat       string `koanf:"log_format"`       // "json" or "text"
	HashWorkers     int    `koanf:"hash_workers"`     // password hashing pool size
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":10119",
		MaxClients:      3,
		CredentialsFile: "logins.txt",
		MetricsAddr:     "127.0.0.1:9100",
		LogFormat:       "json",
		HashWorkers:     2,
	}
}

// Load builds the effective configuration: built-in defaults, overlaid by
// the YAML file at path (missing files are tolerated), overlaid by any
// flags the user set. A nil flag set skips the flag layer.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	def := Default()
	defaults := map[string]interface{}{
		"listen_addr":      def.ListenAddr,
		"max_clients":      def.MaxClients,
		"credentials_file": def.CredentialsFile,
		"metrics_addr":     def.MetricsAddr,
		"log_format":       def.LogFormat,
		"hash_workers":     def.HashWorkers,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, oops.Code("CONFIG_LOAD_FAILED").
					With("path", path).
					Wrap(err)
			}
			slog.Debug("config file not found, using defaults", "path", path)
		}
	}

	if flags != nil {
		// Flag names use dashes; koanf keys use underscores.
		flagProvider := posflag.ProviderWithValue(flags, ".", k,
			func(key, value string) (string, interface{}) {
				return strings.ReplaceAll(key, "-", "_"), value
			})
		if err := k.Load(flagProvider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr cannot be empty")
	}
	if c.MaxClients < 1 {
		return oops.Code("CONFIG_INVALID").
			With("max_clients", c.MaxClients).
			Errorf("max_clients must be at least 1")
	}
	if c.CredentialsFile == "" {
		return oops.Code("CONFIG_INVALID").Errorf("credentials_file cannot be empty")
	}
	if c.MetricsAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("metrics_addr cannot be empty")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be json or text")
	}
	if c.HashWorkers < 1 {
		return oops.Code("CONFIG_INVALID").
			With("hash_workers", c.HashWorkers).
			Errorf("hash_workers must be at least 1")
	}
	return nil
}
