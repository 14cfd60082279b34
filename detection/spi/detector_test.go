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

package spi

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

func identityPort(id byte) *spitest.Playback {
	return &spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{{
				W: []byte{chip.ModeReadReg | chip.RegICIdentity, 0x00},
				R: []byte{0x00, id},
			}},
		},
	}
}

func TestDetectPorts(t *testing.T) {
	t.Parallel()

	ports := map[string]*spitest.Playback{
		"/dev/spidev0.0": identityPort(chip.ICTypeST25R3916B | 0x01),
		"/dev/spidev0.1": identityPort(0xFF),
	}
	d := &detector{open: func(name string) (spi.PortCloser, error) {
		port, ok := ports[name]
		if !ok {
			return nil, errors.New("no such port")
		}
		return port, nil
	}}

	opts := detection.DefaultOptions()
	devices, err := d.detectPorts(context.Background(), []string{"/dev/spidev0.0", "/dev/spidev0.1", "/dev/spidev1.0"}, &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/spidev0.0", devices[0].Path)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "ST25R3916B", devices[0].Metadata["model"])
	assert.Equal(t, "1", devices[0].Metadata["revision"])
}

func TestDetectPorts_Passive(t *testing.T) {
	t.Parallel()

	d := &detector{open: func(string) (spi.PortCloser, error) {
		t.Error("passive detection must not open ports")
		return nil, errors.New("unexpected open")
	}}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Passive
	opts.IgnorePaths = []string{"/dev/spidev1.*"}
	devices, err := d.detectPorts(context.Background(), []string{"/dev/spidev0.0", "/dev/spidev1.0"}, &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.Low, devices[0].Confidence)
}

func TestDetectPorts_NothingFound(t *testing.T) {
	t.Parallel()

	d := &detector{open: func(string) (spi.PortCloser, error) {
		return identityPort(0x00), nil
	}}

	opts := detection.DefaultOptions()
	_, err := d.detectPorts(context.Background(), []string{"/dev/spidev0.0"}, &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetectPorts_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &detector{open: openPort}
	opts := detection.DefaultOptions()
	_, err := d.detectPorts(ctx, []string{"/dev/spidev0.0"}, &opts)
	require.ErrorIs(t, err, detection.ErrDetectionTimeout)
}
