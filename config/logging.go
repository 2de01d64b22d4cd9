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
	"github.com/rs/zerolog"
	"go.mau.fi/zeroconfig"
)

func validateLogging(l *zeroconfig.Config) {
	if l.MinLevel == nil {
		level := zerolog.DebugLevel
		l.MinLevel = &level
	}

	if len(l.Writers) == 0 {
		l.Writers = []zeroconfig.WriterConfig{{
			Type:   zeroconfig.WriterTypeStdout,
			Format: zeroconfig.LogFormatPrettyColored,
		}}
	}
}

func (cfg *Config) CreateLogger() (*zerolog.Logger, error) {
	log, err := cfg.Logging.Compile()
	if err != nil {
		return nil, err
	}

	zerolog.DefaultContextLogger = log

	return log, nil
}
