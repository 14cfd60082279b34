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

package chip_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	testutil "github.com/ZaparooProject/go-st25r/internal/testing"
)

func newChip(t *testing.T, opts ...chip.Option) (*chip.Chip, *testutil.Simulator) {
	t.Helper()

	sim := testutil.NewSimulator()
	opts = append([]chip.Option{chip.WithFieldTiming(0, 0)}, opts...)
	c := chip.New(sim, opts...)
	require.NoError(t, c.Reset(context.Background()))
	return c, sim
}

func TestReset_Identity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		model    string
		identity byte
		revision byte
	}{
		{name: "ST25R3911", identity: chip.ICTypeST25R3911 | 0x01, model: "ST25R3911", revision: 1},
		{name: "ST25R3916", identity: chip.ICTypeST25R3916 | 0x02, model: "ST25R3916", revision: 2},
		{name: "ST25R3916B", identity: chip.ICTypeST25R3916B, model: "ST25R3916B", revision: 0},
		{name: "unknown type", identity: 0x50, model: "unknown", revision: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sim := testutil.NewSimulator()
			sim.SetIdentity(tt.identity)
			c := chip.New(sim)

			_, err := c.ChipIdentity(context.Background())
			require.ErrorIs(t, err, st25r.ErrNotInitialized)

			require.NoError(t, c.Reset(context.Background()))
			info, err := c.ChipIdentity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.model, info.Model)
			assert.Equal(t, tt.identity, info.Identity)
			assert.Equal(t, tt.revision, info.Revision)
		})
	}
}

func TestReset_Configuration(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)

	assert.Equal(t, byte(chip.CmdSetDefault), sim.Commands()[0])
	assert.Equal(t, byte(chip.ModeISO14443A), sim.Register(chip.RegModeDef))
	assert.Equal(t, byte(chip.OpEnable|chip.OpRXEnable), sim.Register(chip.RegOpCtrl))
	assert.False(t, sim.FieldOn(), "field stays off until a presence read")
	assert.Equal(t, st25r.TransportMock, c.Type())
}

func TestReset_ChipNotFound(t *testing.T) {
	t.Parallel()

	for _, id := range []byte{0x00, 0xFF} {
		sim := testutil.NewSimulator()
		sim.SetIdentity(id)
		c := chip.New(sim)

		err := c.Reset(context.Background())
		require.ErrorIs(t, err, st25r.ErrChipNotFound, "identity 0x%02X", id)
		assert.Equal(t, st25r.ErrorTypePermanent, st25r.GetErrorType(err))
	}
}

type pulseRecorder struct {
	err   error
	count int
}

func (p *pulseRecorder) Pulse(_ context.Context) error {
	p.count++
	return p.err
}

func TestReset_PulsesResetLine(t *testing.T) {
	t.Parallel()

	line := &pulseRecorder{}
	_, _ = newChip(t, chip.WithResetLine(line))
	assert.Equal(t, 1, line.count)

	failing := &pulseRecorder{err: errors.New("gpio busy")}
	c := chip.New(testutil.NewSimulator(), chip.WithResetLine(failing))
	require.Error(t, c.Reset(context.Background()))
}

func TestSetPower(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		level   int
		want    byte
	}{
		{name: "maximum", level: 15, want: 0x00},
		{name: "middle", level: 5, want: 0x0A},
		{name: "minimum", level: 0, want: 0x0F},
		{name: "too high", level: 16, wantErr: st25r.ErrPowerLevelOutOfRange},
		{name: "negative", level: -1, wantErr: st25r.ErrPowerLevelOutOfRange},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, sim := newChip(t)
			err := c.SetPower(context.Background(), tt.level)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sim.Register(chip.RegTXDriver)&chip.TXDriverResMask)
		})
	}
}

func TestReadFieldPresence_UIDLengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uid  []byte
	}{
		{name: "single size", uid: testutil.TestShortUID},
		{name: "double size", uid: testutil.TestNTAG213UID},
		{name: "triple size", uid: []byte{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, sim := newChip(t)
			tag := testutil.NewVirtualNTAG213(tt.uid)
			sim.Insert(tag)

			p, err := c.ReadFieldPresence(context.Background())
			require.NoError(t, err)
			assert.True(t, p.Present)
			assert.Equal(t, st25r.NewUID(tt.uid), p.UID)
			assert.Equal(t, testutil.StateActive, tag.State())
		})
	}
}

func TestReadFieldPresence_NoTag(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)

	p, err := c.ReadFieldPresence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, st25r.NoTag, p)
	assert.False(t, sim.FieldOn(), "field is dropped when nothing answered")

	require.NoError(t, c.SetFieldEnabled(context.Background(), true))
	p, err = c.ReadFieldPresence(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Present)
	assert.True(t, sim.FieldOn(), "field stays on when enabled")
}

func TestReadFieldPresence_RepeatedReads(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)
	sim.Insert(testutil.NewVirtualNTAG213(nil))

	// A selected tag ignores REQA, so every cycle has to drop the field first
	for i := 0; i < 3; i++ {
		p, err := c.ReadFieldPresence(context.Background())
		require.NoError(t, err, "read %d", i)
		assert.True(t, p.Present, "read %d", i)
	}

	sim.Remove()
	p, err := c.ReadFieldPresence(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Present)
}

func TestReadFieldPresence_PartialUID(t *testing.T) {
	t.Parallel()

	for _, keepField := range []bool{false, true} {
		c, sim := newChip(t)
		require.NoError(t, c.SetFieldEnabled(context.Background(), keepField))
		sim.Insert(testutil.NewVirtualNTAG213(nil))
		sim.CorruptAnticollision(1)

		_, err := c.ReadFieldPresence(context.Background())
		require.ErrorIs(t, err, st25r.ErrPartialUID, "keepField=%v", keepField)
		assert.NotErrorIs(t, err, st25r.ErrNoResponse)
		assert.True(t, st25r.IsRetryable(err))

		// The tag is left in READY and must be reset before the next REQA
		p, err := c.ReadFieldPresence(context.Background())
		require.NoError(t, err, "keepField=%v", keepField)
		assert.True(t, p.Present, "keepField=%v", keepField)
	}
}

func TestReadFieldPresence_BusError(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)
	sim.FailBus(errors.New("bus fault"), 1)

	_, err := c.ReadFieldPresence(context.Background())
	require.ErrorIs(t, err, st25r.ErrTransportWrite)
	assert.True(t, st25r.IsRetryable(err))

	var te *st25r.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "simulator", te.Port)
}

func TestReadFieldPresence_Cancelled(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)
	sim.Insert(testutil.NewVirtualNTAG213(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ReadFieldPresence(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr  error
		name     string
		data     []byte
		want     []byte
		address  byte
		failNext int
	}{
		{name: "full page", address: 4, data: []byte{1, 2, 3, 4}, want: []byte{1, 2, 3, 4}},
		{name: "short page is padded", address: 5, data: []byte{0xAA}, want: []byte{0xAA, 0, 0, 0}},
		{name: "NAK", address: 6, data: []byte{1, 2, 3, 4}, failNext: 1, wantErr: st25r.ErrWriteNAK},
		{name: "protected page", address: 1, data: []byte{1, 2, 3, 4}, wantErr: st25r.ErrWriteNAK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, sim := newChip(t)
			tag := testutil.NewVirtualNTAG213(nil)
			tag.FailWrites(tt.failNext)
			sim.Insert(tag)

			p, err := c.ReadFieldPresence(context.Background())
			require.NoError(t, err)
			require.True(t, p.Present)

			err = c.WriteBlock(context.Background(), tt.address, tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, st25r.ErrorTypePermanent, st25r.GetErrorType(err))
				return
			}
			require.NoError(t, err)

			page, err := tag.ReadPage(int(tt.address))
			require.NoError(t, err)
			assert.Equal(t, tt.want, page)
		})
	}
}

func TestWriteBlock_NoSelectedTag(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)
	err := c.WriteBlock(context.Background(), 4, []byte{1, 2, 3, 4})
	require.ErrorIs(t, err, st25r.ErrNoResponse)

	sim.Insert(testutil.NewVirtualNTAG213(nil))
	_, err = c.ReadFieldPresence(context.Background())
	require.NoError(t, err)
	sim.Remove()

	err = c.WriteBlock(context.Background(), 4, []byte{1, 2, 3, 4})
	require.ErrorIs(t, err, st25r.ErrNoResponse)
	assert.True(t, st25r.IsRetryable(err))
}

func TestWriteBlock_TooLong(t *testing.T) {
	t.Parallel()

	c, _ := newChip(t)
	err := c.WriteBlock(context.Background(), 4, []byte{1, 2, 3, 4, 5})
	require.Error(t, err)
	assert.False(t, st25r.IsRetryable(err))
}

func TestReadFieldStrength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		amplitude byte
		want      float64
	}{
		{name: "full", amplitude: 0xFF, want: 1},
		{name: "half", amplitude: 0x80, want: 128.0 / 255},
		{name: "none", amplitude: 0x00, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, sim := newChip(t)
			sim.SetAmplitude(tt.amplitude)

			got, err := c.ReadFieldStrength(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Contains(t, sim.Commands(), byte(chip.CmdMeasureAmplitude))
		})
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	c, sim := newChip(t)
	require.NoError(t, c.SetFieldEnabled(context.Background(), true))
	require.True(t, sim.FieldOn())

	require.NoError(t, c.Close())
	assert.False(t, sim.FieldOn())
	assert.Equal(t, byte(0), sim.Register(chip.RegOpCtrl))
}

func TestDevice_OverSimulatedChip(t *testing.T) {
	t.Parallel()

	sim := testutil.NewSimulator()
	tag := testutil.NewVirtualNTAG213(nil)
	c := chip.New(sim, chip.WithFieldTiming(0, 0))

	uid := st25r.NewUID(testutil.TestNTAG213UID)
	device, err := st25r.New(c, st25r.WithTag(uid.String(), "card"))
	require.NoError(t, err)
	require.NoError(t, device.Init())

	var events []st25r.TagEvent
	var results []st25r.WriteResult
	device.OnTagArrival(func(ev st25r.TagEvent) { events = append(events, ev) })
	device.OnTagRemoved(func(ev st25r.TagEvent) { events = append(events, ev) })
	device.OnFinishedWrite(func(r st25r.WriteResult) { results = append(results, r) })

	ctx := context.Background()
	sim.Insert(tag)
	require.NoError(t, device.Tick(ctx))
	require.Len(t, events, 1)
	assert.Equal(t, st25r.EventArrival, events[0].Kind)
	require.NotNil(t, events[0].Identity)
	assert.Equal(t, "card", events[0].Identity.Name)
	assert.True(t, device.IsTagPresent("card"))
	assert.InDelta(t, float64(testutil.DefaultAmplitude)/255, device.FieldStrength(), 1e-9)

	require.NoError(t, device.RequestWriteText("hello", "en"))
	for i := 0; i < 10 && len(results) == 0; i++ {
		require.NoError(t, device.Tick(ctx))
	}
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	body, err := tag.NDEFMessage()
	require.NoError(t, err)
	want, err := ndef.NewTextMessage("hello", "en").Marshal()
	require.NoError(t, err)
	assert.Equal(t, want, body)
	assert.Len(t, events, 1, "writing does not disturb presence")

	sim.Remove()
	require.NoError(t, device.Tick(ctx))
	require.NoError(t, device.Tick(ctx))
	require.Len(t, events, 2)
	assert.Equal(t, st25r.EventRemoval, events[1].Kind)
	assert.False(t, device.IsTagPresent("card"))

	require.NoError(t, device.Close())
	assert.False(t, sim.FieldOn())
}
