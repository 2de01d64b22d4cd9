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
	"time"

	"gopkg.in/yaml.v3"

	attachmentpkg "go.mau.fi/mediastate/pkg/attachment"
)

type attachment struct {
	FadeDuration time.Duration `yaml:"fade_duration"`
}

func (a *attachment) validate() error {
	if a.FadeDuration <= 0 {
		a.FadeDuration = attachmentpkg.DefaultFadeDuration
	}

	return nil
}

func (a *attachment) UnmarshalYAML(node *yaml.Node) error {
	type rawAttachment attachment

	raw := rawAttachment{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*a = attachment(raw)

	return a.validate()
}
