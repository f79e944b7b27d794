// Copyright 2024 BVFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the YAML configuration bvfsctl and any other
// embedder needs to open a catalog session: dialect, DSN, pagination
// default, and logging level.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bvfs/internal/catalog"
)

// Config is the process-level configuration for a bvfs catalog session.
// Library callers can build one directly without touching YAML at all.
type Config struct {
	Dialect       string `yaml:"dialect"`        // sqlite, mysql, postgres, generic
	DSN           string `yaml:"dsn"`
	DefaultLimit  int    `yaml:"default_limit"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	LogLevel      string `yaml:"log_level"`
}

// ApplyDefaults fills zero-value fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Dialect == "" {
		c.Dialect = string(catalog.Sqlite)
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 1000
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = 30000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Tag resolves the configured dialect name to a catalog.Tag.
func (c *Config) Tag() (catalog.Tag, error) {
	switch c.Dialect {
	case string(catalog.Sqlite), string(catalog.MySQL), string(catalog.Postgres), string(catalog.Ingres), string(catalog.Generic):
		return catalog.Tag(c.Dialect), nil
	default:
		return "", fmt.Errorf("config: unknown dialect %q", c.Dialect)
	}
}

// Load reads and parses a YAML config file at path, applying defaults to
// whatever the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a Config with every field at its default, no file read.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
