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
	"os"
)

// WriteExample writes the example config to filename. Existing files are
// only overwritten if force is set.
func WriteExample(filename string, force bool) error {
	if _, err := os.Stat(filename); err == nil && !force {
		return fmt.Errorf("file %q exists, use -f to overwrite", filename)
	}

	return os.WriteFile(filename, []byte(ExampleConfig), 0600)
}
