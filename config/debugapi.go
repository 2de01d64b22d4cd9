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
	"strings"

	"go.mau.fi/util/random"
)

type debugAPI struct {
	Listen       string `yaml:"listen"`
	SharedSecret string `yaml:"shared_secret"`
}

// validate returns true if a new shared secret was generated.
func (d *debugAPI) validate() (bool, error) {
	if strings.ToLower(d.SharedSecret) == "generate" {
		d.SharedSecret = random.String(64)

		return true, nil
	}

	return false, nil
}

func (d *debugAPI) Enabled() bool {
	return d.Listen != "" && d.SharedSecret != "" && strings.ToLower(d.SharedSecret) != "disable"
}
