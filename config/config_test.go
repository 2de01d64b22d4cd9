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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleConfig(t *testing.T) {
	cfg, err := FromString(ExampleConfig)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.Attachment.FadeDuration)
	assert.Equal(t, "http://localhost:8008/media", cfg.Transport.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Transport.Timeout)
	assert.Equal(t, int64(52428800), cfg.Transport.MaxSize)
	assert.Equal(t, "sqlite3", cfg.Database.Type)
	assert.Len(t, cfg.DebugAPI.SharedSecret, 64)
	assert.True(t, cfg.Updated)
	assert.True(t, cfg.DebugAPI.Enabled())
	require.NotNil(t, cfg.Logging.MinLevel)
	assert.Equal(t, zerolog.DebugLevel, *cfg.Logging.MinLevel)
}

func TestDefaults(t *testing.T) {
	cfg, err := FromString("transport:\n    base_url: https://media.example.com\n")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.Attachment.FadeDuration)
	assert.Equal(t, "cache", cfg.Transport.CacheDir)
	assert.Equal(t, int64(3), cfg.Transport.MaxParallel)
	assert.Equal(t, int64(1_024*1_024*50), cfg.Transport.MaxSize)
	assert.Equal(t, "mediastate.db", cfg.Database.URI)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.DebugAPI.Enabled())
	assert.False(t, cfg.Updated)
	assert.Len(t, cfg.Logging.Writers, 1)

	tc := cfg.TransportConfig()
	assert.Equal(t, "https://media.example.com", tc.BaseURL)
	assert.Equal(t, 5*time.Minute, tc.Timeout)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		errMsg string
	}{
		{"Missing base URL", "attachment:\n    fade_duration: 1s\n", "base_url is required"},
		{"Bad scheme", "transport:\n    base_url: ftp://example.com\n", "http or https"},
		{"Bad database", "transport:\n    base_url: http://x\ndatabase:\n    type: mysql\n", "unsupported database type"},
		{"Bad duration", "transport:\n    base_url: http://x\n    timeout: soon\n", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromString(test.config)
			require.Error(t, err)
			if test.errMsg != "" {
				assert.ErrorContains(t, err, test.errMsg)
			}
		})
	}
}

func TestLoadSavesGeneratedSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteExample(path, false))
	assert.Error(t, WriteExample(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Updated)
	secret := cfg.DebugAPI.SharedSecret

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, secret, reloaded.DebugAPI.SharedSecret)
	assert.Equal(t, cfg.Transport, reloaded.Transport)

	require.NoError(t, WriteExample(path, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ExampleConfig, string(data))
}
