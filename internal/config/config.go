// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

// Package config loads application configuration from defaults, an
// optional YAML file, and command-line flags, in that precedence order.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds runtime configuration. The database URL is intentionally
// not here; it carries credentials and comes from the DATABASE_URL
// environment variable.
type Config struct {
	Env  string `koanf:"env"`
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`
	Observability struct {
		Addr string `koanf:"addr"`
	} `koanf:"observability"`
	Session struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"session"`
	Reset struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"reset"`
	Password struct {
		BcryptCost int `koanf:"bcrypt_cost"`
	} `koanf:"password"`
	Sweep struct {
		Interval time.Duration `koanf:"interval"`
	} `koanf:"sweep"`
	Log struct {
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// defaults mirror the behavior described in the deployment docs: 7 day
// sessions with midpoint extension, 1 hour reset tokens, bcrypt cost 10,
// hourly sweeps.
func defaults(k *koanf.Koanf) error {
	for key, value := range map[string]any{
		"env":                  "dev",
		"http.addr":            ":8080",
		"observability.addr":   "127.0.0.1:9100",
		"session.ttl":          7 * 24 * time.Hour,
		"reset.ttl":            time.Hour,
		"password.bcrypt_cost": 10,
		"sweep.interval":       time.Hour,
		"log.format":           "json",
	} {
		if err := k.Set(key, value); err != nil {
			return oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

// Load reads configuration. path may be empty (no file); flags may be nil
// (no overrides).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := defaults(k); err != nil {
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("session.ttl", c.Session.TTL).Errorf("session ttl must be positive")
	}
	if c.Reset.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("reset.ttl", c.Reset.TTL).Errorf("reset ttl must be positive")
	}
	if c.Sweep.Interval <= 0 {
		return oops.Code("CONFIG_INVALID").With("sweep.interval", c.Sweep.Interval).Errorf("sweep interval must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).Errorf("log format must be json or text")
	}
	return nil
}
