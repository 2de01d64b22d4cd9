// mediastate - Inline media attachment state for chat clients.
// Copyright (C) 2026 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package config loads the YAML configuration of mediastate.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

type Config struct {
	Attachment attachment        `yaml:"attachment"`
	Transport  transport         `yaml:"transport"`
	Database   database          `yaml:"database"`
	DebugAPI   debugAPI          `yaml:"debug_api"`
	Logging    zeroconfig.Config `yaml:"logging"`

	// Updated is set when loading generated values that should be saved back.
	Updated bool `yaml:"-"`
}

func (cfg *Config) validate() error {
	if err := cfg.Attachment.validate(); err != nil {
		return fmt.Errorf("attachment: %w", err)
	} else if err = cfg.Transport.validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	} else if err = cfg.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	updated, err := cfg.DebugAPI.validate()
	if err != nil {
		return fmt.Errorf("debug_api: %w", err)
	}
	cfg.Updated = cfg.Updated || updated
	validateLogging(&cfg.Logging)
	return nil
}

func FromBytes(data []byte) (*Config, error) {
	cfg := Config{}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func FromString(str string) (*Config, error) {
	return FromBytes([]byte(str))
}

func FromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return FromBytes(data)
}

// Load reads the config file and writes it back if any values were
// generated while loading.
func Load(filename string) (*Config, error) {
	cfg, err := FromFile(filename)
	if err != nil {
		return nil, err
	}
	if cfg.Updated {
		if err = cfg.Save(filename); err != nil {
			return nil, fmt.Errorf("failed to save updated config: %w", err)
		}
		cfg.Updated = false
	}
	return cfg, nil
}

func (cfg *Config) Save(filename string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0600)
}
