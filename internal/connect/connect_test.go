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

package connect

import (
	"testing"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		want    st25r.TransportType
		wantErr bool
	}{
		{name: "spidev", path: "/dev/spidev0.0", want: st25r.TransportSPI},
		{name: "periph SPI name", path: "SPI0.1", want: st25r.TransportSPI},
		{name: "i2c bus", path: "/dev/i2c-1", want: st25r.TransportI2C},
		{name: "i2c with address", path: "/dev/i2c-1:0x50", want: st25r.TransportI2C},
		{name: "serial port", path: "/dev/ttyUSB0", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := InferType(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitI2CPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		bus     string
		addr    uint16
		wantErr bool
	}{
		{name: "default address", path: "/dev/i2c-1", bus: "/dev/i2c-1", addr: 0x50},
		{name: "explicit address", path: "/dev/i2c-3:0x51", bus: "/dev/i2c-3", addr: 0x51},
		{name: "upper case hex", path: "/dev/i2c-3:0x5A", bus: "/dev/i2c-3", addr: 0x5A},
		{name: "garbage address", path: "/dev/i2c-1:fifty", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bus, addr, err := SplitI2CPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bus, bus)
			assert.Equal(t, tt.addr, addr)
		})
	}
}

func TestFromConfig_Errors(t *testing.T) {
	t.Parallel()

	cfg := st25r.DefaultConfig()
	_, err := FromConfig(cfg)
	require.ErrorIs(t, err, ErrNoTransport)

	cfg.Transport.Path = "/dev/ttyACM0"
	_, err = FromConfig(cfg)
	require.Error(t, err)

	cfg.Transport.Type = st25r.TransportMock
	_, err = FromConfig(cfg)
	require.ErrorContains(t, err, "unsupported transport type")
}
