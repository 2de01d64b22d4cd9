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


package config

import (
	"errors"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"go.mau.fi/mediastate/pkg/resource"
)

type transport struct {
	BaseURL     string        `yaml:"base_url"`
	CacheDir    string        `yaml:"cache_dir"`
	MaxParallel int64         `yaml:"max_parallel"`
	MaxSize     int64         `yaml:"max_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

func (t *transport) validate() error {
	if t.BaseURL == "" {
		return errors.New("base_url is required")
	} else if parsed, err := url.Parse(t.BaseURL); err != nil {
		return err
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("base_url must be a http or https URL")
	}

	if t.CacheDir == "" {
		t.CacheDir = "cache"
	}

	if t.MaxParallel <= 0 {
		t.MaxParallel = 3
	}

	if t.MaxSize == 0 {
		t.MaxSize = 1_024 * 1_024 * 50
	}

	if t.Timeout <= 0 {
		t.Timeout = 5 * time.Minute
	}

	return nil
}

func (t *transport) UnmarshalYAML(node *yaml.Node) error {
	type rawTransport transport

	raw := rawTransport{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*t = transport(raw)

	return t.validate()
}

func (cfg *Config) TransportConfig() resource.TransportConfig {
	return resource.TransportConfig{
		BaseURL:     cfg.Transport.BaseURL,
		CacheDir:    cfg.Transport.CacheDir,
		MaxParallel: cfg.Transport.MaxParallel,
		MaxSize:     cfg.Transport.MaxSize,
		Timeout:     cfg.Transport.Timeout,
	}
}
