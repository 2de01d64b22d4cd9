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


// Package version holds the build information of mediastate.
package version

import (
	"fmt"
	"strings"
)

const Name = "mediastate"

// These are filled at build time with the -X linker flag.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	var parts []string
	if Tag != "unknown" {
		parts = append(parts, Tag)
	} else {
		parts = append(parts, "dev")
	}
	if Commit != "unknown" {
		commit := Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		parts = append(parts, commit)
	}
	out := strings.Join(parts, "+")
	if BuildTime != "unknown" {
		out = fmt.Sprintf("%s (built at %s)", out, BuildTime)
	}
	return out
}
