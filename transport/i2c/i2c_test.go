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

package i2c

import (
	"context"
	"testing"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func cmdOp(cmd byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: []byte{cmd}}
}

func writeOp(reg, value byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: []byte{chip.ModeWriteReg | reg, value}}
}

func readOp(reg byte, values ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: []byte{chip.ModeReadReg | reg}, R: values}
}

func TestTransport_ResetAndClose(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			cmdOp(chip.CmdSetDefault),
			readOp(chip.RegICIdentity, chip.ICTypeST25R3916B|0x01),
			writeOp(chip.RegOpCtrl, chip.OpEnable|chip.OpRXEnable),
			writeOp(chip.RegModeDef, chip.ModeISO14443A),
			writeOp(chip.RegBitRate, 0x00),
			writeOp(chip.RegISO14443AConf, 0x00),
			writeOp(chip.RegNoResponseTimer1, 0x00),
			writeOp(chip.RegNoResponseTimer2, 0x23),
			writeOp(chip.RegMaskMainIntr, 0x00),
			writeOp(chip.RegMaskTimerIntr, 0x00),
			writeOp(chip.RegMaskErrorIntr, 0x00),
			writeOp(chip.RegMaskPassiveIntr, 0x00),
			writeOp(chip.RegOpCtrl, 0x00),
		},
		DontPanic: true,
	}

	transport := NewFromBus(bus, "/dev/i2c-1")
	assert.Equal(t, st25r.TransportI2C, transport.Type())
	assert.Equal(t, "/dev/i2c-1", transport.String())

	require.NoError(t, transport.Reset(context.Background()))
	info, err := transport.ChipIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ST25R3916B", info.Model)
	assert.Equal(t, byte(1), info.Revision)

	require.NoError(t, transport.Close())
}

func TestTransport_ReadFieldStrength(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			writeOp(chip.RegOpCtrl, chip.OpEnable|chip.OpRXEnable|chip.OpTXEnable),
			readOp(chip.RegMainIntr, 0, 0, 0, 0),
			cmdOp(chip.CmdMeasureAmplitude),
			readOp(chip.RegMainIntr, 0, chip.IRQDCT>>8, 0, 0),
			readOp(chip.RegADConvOut, 0xFF),
		},
		DontPanic: true,
	}

	transport := NewFromBus(bus, "1")
	strength, err := transport.ReadFieldStrength(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, strength, 1e-9)
	assert.Equal(t, len(bus.Ops), bus.Count)
}

func TestTransport_Address(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x51, W: []byte{chip.ModeReadReg | chip.RegTXDriver}, R: []byte{0x70}},
			{Addr: 0x51, W: []byte{chip.ModeWriteReg | chip.RegTXDriver, 0x77}},
		},
		DontPanic: true,
	}
	transport := NewFromBus(bus, "1", WithAddress(0x51))
	require.NoError(t, transport.SetPower(context.Background(), 8))
	assert.Equal(t, 2, bus.Count)
}

func TestTransport_BusFailure(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{DontPanic: true}
	transport := NewFromBus(bus, "1")

	err := transport.Reset(context.Background())
	require.ErrorIs(t, err, st25r.ErrTransportWrite)

	var te *st25r.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "1@0x50", te.Port)
}
