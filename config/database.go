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
	"fmt"

	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"
	"gopkg.in/yaml.v3"
)

type database struct {
	Type string `yaml:"type"`
	URI  string `yaml:"uri"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

func (d *database) validate() error {
	if d.Type == "" {
		d.Type = "sqlite3"
	}

	switch d.Type {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q", d.Type)
	}

	if d.URI == "" {
		d.URI = "mediastate.db"
	}

	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = 20
	}

	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 2
	}

	return nil
}

func (d *database) UnmarshalYAML(node *yaml.Node) error {
	type rawDatabase database

	raw := rawDatabase{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*d = database(raw)

	return d.validate()
}

// CreateDatabase opens the configured database. The SQL driver has to be
// registered by the caller.
func (cfg *Config) CreateDatabase(log zerolog.Logger) (*dbutil.Database, error) {
	db, err := dbutil.NewWithDialect(cfg.Database.URI, cfg.Database.Type)
	if err != nil {
		return nil, err
	}
	db.Log = dbutil.ZeroLogger(log.With().Str("db_section", "main").Logger())
	db.RawDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.RawDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	return db, nil
}
