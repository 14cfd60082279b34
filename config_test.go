// go-st25r
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-st25r.
//
// go-st25r is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-st25r is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-st25r; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package st25r

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
transport:
  type: spi
  path: /dev/spidev0.0
  speed_hz: 1000000
irq_pin: GPIO25
poll_interval: 250ms
power_level: 12
debounce_count: 3
rf_field_enabled: true
tags:
  - name: badge1
    uid: 04-A1-3B-2C
  - name: badge2
    uid: 04-12-34-56-78-9A-BC
`

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, TransportSPI, cfg.Transport.Type)
	assert.Equal(t, "/dev/spidev0.0", cfg.Transport.Path)
	assert.Equal(t, int64(1000000), cfg.Transport.SpeedHz)
	assert.Equal(t, "GPIO25", cfg.IRQPin)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 12, cfg.PowerLevel)
	assert.Equal(t, 3, cfg.DebounceCount)
	assert.True(t, cfg.RFFieldEnabled)
	require.Len(t, cfg.Tags, 2)

	// Unset keys keep their defaults
	assert.Equal(t, DefaultMaxFailedChecks, cfg.MaxFailedChecks)
	assert.Equal(t, DefaultWriteBlockSize, cfg.WriteBlockSize)
	assert.Equal(t, DefaultWriteStartBlock, cfg.WriteStartBlock)
	assert.True(t, cfg.AutoReset)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)
	identity, ok := registry.Resolve(UID{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC})
	require.True(t, ok)
	assert.Equal(t, "badge2", identity.Name)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		yaml    string
		field   string
	}{
		{
			name:    "PowerTooHigh",
			yaml:    "power_level: 16",
			wantErr: ErrPowerLevelOutOfRange,
			field:   "power_level",
		},
		{
			name:    "PowerNegative",
			yaml:    "power_level: -1",
			wantErr: ErrPowerLevelOutOfRange,
			field:   "power_level",
		},
		{
			name:    "DuplicateTags",
			yaml:    "tags:\n  - {name: a, uid: 04-A1}\n  - {name: b, uid: 04-a1}",
			wantErr: ErrDuplicateUID,
			field:   "uid",
		},
		{
			name:    "MalformedUID",
			yaml:    "tags:\n  - {name: a, uid: 4-A1}",
			wantErr: ErrInvalidUID,
			field:   "uid",
		},
		{
			name:    "MissingName",
			yaml:    "tags:\n  - {uid: 04-A1}",
			wantErr: ErrInvalidConfig,
			field:   "tags[0].name",
		},
		{
			name:    "ZeroDebounce",
			yaml:    "debounce_count: 0",
			wantErr: ErrInvalidConfig,
			field:   "debounce_count",
		},
		{
			name:    "UnknownTransport",
			yaml:    "transport: {type: uart}",
			wantErr: ErrInvalidConfig,
			field:   "transport.type",
		},
		{
			name:    "BlockSizeOverSPI",
			yaml:    "transport: {type: spi, path: /dev/spidev0.0}\nwrite_block_size: 16",
			wantErr: ErrInvalidConfig,
			field:   "write_block_size",
		},
		{
			name:    "BlockSizeOverInferredI2C",
			yaml:    "transport: {path: /dev/i2c-1}\nwrite_block_size: 8",
			wantErr: ErrInvalidConfig,
			field:   "write_block_size",
		},
		{
			name:    "BadYAML",
			yaml:    "tags: [",
			wantErr: ErrInvalidConfig,
			field:   "yaml",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseConfig_BlockSizeWithoutBus(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte("transport: {type: mock}\nwrite_block_size: 16"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.WriteBlockSize)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "st25r.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Tags, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidatePowerLevel(t *testing.T) {
	t.Parallel()

	for level := MinPowerLevel; level <= MaxPowerLevel; level++ {
		assert.NoError(t, ValidatePowerLevel(level))
	}
	assert.ErrorIs(t, ValidatePowerLevel(MinPowerLevel-1), ErrPowerLevelOutOfRange)
	assert.ErrorIs(t, ValidatePowerLevel(MaxPowerLevel+1), ErrPowerLevelOutOfRange)
}

func TestConfig_Clone(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Tags = []TagConfig{{Name: "a", UID: "01"}}
	clone := cfg.Clone()
	clone.Tags[0].Name = "b"
	assert.Equal(t, "a", cfg.Tags[0].Name)
}
