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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-st25r/internal/chip"
)

func TestVirtualTag_StateMachine(t *testing.T) {
	t.Parallel()

	tag := NewVirtualNTAG213(nil)
	assert.Equal(t, StateIdle, tag.State())

	require.True(t, tag.request(false))
	assert.Equal(t, StateReady, tag.State())
	assert.False(t, tag.request(false), "READY tags ignore REQA")

	resp := tag.anticollision(1)
	require.Len(t, resp, 5)
	assert.Equal(t, byte(0x88), resp[0])

	sak, ok := tag.selectLevel(1, resp[:4])
	require.True(t, ok)
	assert.Equal(t, byte(0x04), sak, "cascade bit set for a 7 byte UID")

	resp = tag.anticollision(2)
	require.Len(t, resp, 5)
	sak, ok = tag.selectLevel(2, resp[:4])
	require.True(t, ok)
	assert.Equal(t, byte(0x00), sak)
	assert.Equal(t, StateActive, tag.State())

	tag.halt()
	assert.Equal(t, StateHalt, tag.State())
	assert.False(t, tag.request(false), "halted tags ignore REQA")
	assert.True(t, tag.request(true), "halted tags answer WUPA")

	tag.PowerOff()
	assert.Equal(t, StateIdle, tag.State())
}

func TestVirtualTag_SelectMismatch(t *testing.T) {
	t.Parallel()

	tag := NewVirtualNTAG213(TestShortUID)
	require.True(t, tag.request(false))

	_, ok := tag.selectLevel(1, []byte{0, 0, 0, 0})
	assert.False(t, ok)
	_, ok = tag.selectLevel(2, TestShortUID)
	assert.False(t, ok, "wrong cascade level")
	assert.Equal(t, StateReady, tag.State())
}

func TestVirtualTag_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		page     int
		failNext int
		active   bool
		ack      bool
		answered bool
	}{
		{name: "user page", page: 4, active: true, ack: true, answered: true},
		{name: "capability container", page: 3, active: true, ack: true, answered: true},
		{name: "UID page", page: 0, active: true, ack: false, answered: true},
		{name: "configuration page", page: 41, active: true, ack: false, answered: true},
		{name: "forced NAK", page: 4, failNext: 1, active: true, ack: false, answered: true},
		{name: "not selected", page: 4, active: false, ack: false, answered: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag := NewVirtualNTAG213(TestShortUID)
			tag.FailWrites(tt.failNext)
			if tt.active {
				require.True(t, tag.request(false))
				_, ok := tag.selectLevel(1, TestShortUID)
				require.True(t, ok)
			}

			ack, answered := tag.write(tt.page, []byte{1, 2, 3, 4})
			assert.Equal(t, tt.ack, ack)
			assert.Equal(t, tt.answered, answered)
		})
	}
}

func TestVirtualTag_NDEFMessage(t *testing.T) {
	t.Parallel()

	tag := NewVirtualNTAG213(nil)
	body, err := tag.NDEFMessage()
	require.NoError(t, err)
	assert.Empty(t, body)

	require.NoError(t, tag.WritePage(4, []byte{0x03, 0x02, 0xAA, 0xBB}))
	require.NoError(t, tag.WritePage(5, []byte{0xFE, 0x00, 0x00, 0x00}))
	body, err = tag.NDEFMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, body)

	require.NoError(t, tag.WritePage(4, []byte{0xFE, 0x00, 0x00, 0x00}))
	_, err = tag.NDEFMessage()
	require.Error(t, err)
}

func TestSimulator_Registers(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	require.NoError(t, sim.Tx([]byte{chip.ModeWriteReg | chip.RegTXDriver, 0x5A}, nil))
	assert.Equal(t, byte(0x5A), sim.Register(chip.RegTXDriver))

	r := make([]byte, 1)
	require.NoError(t, sim.Tx([]byte{chip.ModeReadReg | chip.RegICIdentity}, r))
	assert.Equal(t, byte(DefaultIdentity), r[0])

	require.NoError(t, sim.Tx([]byte{chip.CmdMeasureAmplitude}, nil))
	irq := make([]byte, 4)
	require.NoError(t, sim.Tx([]byte{chip.ModeReadReg | chip.RegMainIntr}, irq))
	assert.Equal(t, byte(chip.IRQDCT>>8), irq[1])

	require.NoError(t, sim.Tx([]byte{chip.ModeReadReg | chip.RegMainIntr}, irq))
	assert.Equal(t, []byte{0, 0, 0, 0}, irq, "interrupt registers clear on read")
}

func TestSimulator_FIFO(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	require.NoError(t, sim.Tx([]byte{chip.LoadFIFO, 1, 2, 3}, nil))

	status := make([]byte, 2)
	require.NoError(t, sim.Tx([]byte{chip.ModeReadReg | chip.RegFIFOStatus1}, status))
	assert.Equal(t, []byte{3, 0}, status)

	out := make([]byte, 3)
	require.NoError(t, sim.Tx([]byte{chip.ReadFIFO}, out))
	assert.Equal(t, []byte{1, 2, 3}, out)

	require.NoError(t, sim.Tx([]byte{chip.LoadFIFO, 9}, nil))
	require.NoError(t, sim.Tx([]byte{chip.CmdClearFIFO}, nil))
	require.NoError(t, sim.Tx([]byte{chip.ModeReadReg | chip.RegFIFOStatus1}, status))
	assert.Equal(t, byte(0), status[0])
}

func TestSimulator_FieldOffResetsTag(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	tag := NewVirtualNTAG213(nil)
	sim.Insert(tag)

	require.NoError(t, sim.Tx([]byte{chip.ModeWriteReg | chip.RegOpCtrl, chip.OpEnable | chip.OpTXEnable}, nil))
	require.NoError(t, sim.Tx([]byte{chip.CmdTransmitREQA}, nil))
	assert.Equal(t, StateReady, tag.State())

	require.NoError(t, sim.Tx([]byte{chip.ModeWriteReg | chip.RegOpCtrl, chip.OpEnable}, nil))
	assert.Equal(t, StateIdle, tag.State())
	assert.False(t, sim.FieldOn())
}

func TestSimulator_BusFailure(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	sim.FailBus(assert.AnError, 2)

	require.ErrorIs(t, sim.Tx([]byte{chip.CmdStopAll}, nil), assert.AnError)
	require.ErrorIs(t, sim.Tx([]byte{chip.CmdStopAll}, nil), assert.AnError)
	require.NoError(t, sim.Tx([]byte{chip.CmdStopAll}, nil))
	require.Error(t, sim.Tx(nil, nil))
}
