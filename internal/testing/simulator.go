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

// Package testing provides a register level ST25R simulator and virtual
// Type 2 tags for the driver tests
package testing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-st25r/internal/chip"
)

// Default simulator values
const (
	DefaultIdentity  = chip.ICTypeST25R3916 | 0x02
	DefaultAmplitude = 0xC0
)

// Simulator implements chip.Bus by emulating the ST25R register file, FIFO,
// interrupt registers and an RF field holding at most one VirtualTag
type Simulator struct {
	busErr      error
	tag         *VirtualTag
	fifo        []byte
	commands    []byte
	regs        [64]byte
	irq         uint32
	busErrCount int
	corruptBCC  int
	identity    byte
	amplitude   byte
	mu          sync.Mutex
}

// NewSimulator creates a simulator with an empty field
func NewSimulator() *Simulator {
	return &Simulator{
		identity:  DefaultIdentity,
		amplitude: DefaultAmplitude,
	}
}

// String implements chip.Bus
func (*Simulator) String() string {
	return "simulator"
}

// Insert places tag in the field
func (s *Simulator) Insert(tag *VirtualTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag.PowerOff()
	s.tag = tag
}

// Remove takes the tag out of the field
func (s *Simulator) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tag != nil {
		s.tag.PowerOff()
	}
	s.tag = nil
}

// SetIdentity sets the IC identity register
func (s *Simulator) SetIdentity(id byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// SetAmplitude sets the value returned by an amplitude measurement
func (s *Simulator) SetAmplitude(v byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amplitude = v
}

// FailBus makes the next n exchanges fail with err
func (s *Simulator) FailBus(err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busErr = err
	s.busErrCount = n
}

// CorruptAnticollision makes the next n anticollision answers fail their BCC
func (s *Simulator) CorruptAnticollision(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corruptBCC = n
}

// Commands returns every direct command received so far
func (s *Simulator) Commands() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.commands...)
}

// Register returns a register value without read side effects
func (s *Simulator) Register(reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg&chip.RegMask]
}

// FieldOn reports whether the RF field is switched on
func (s *Simulator) FieldOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldOnLocked()
}

func (s *Simulator) fieldOnLocked() bool {
	return s.regs[chip.RegOpCtrl]&chip.OpTXEnable != 0
}

// Tx implements chip.Bus
func (s *Simulator) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busErrCount > 0 {
		s.busErrCount--
		return s.busErr
	}
	if len(w) == 0 {
		return errors.New("simulator: empty frame")
	}

	b := w[0]
	switch {
	case b == chip.LoadFIFO:
		s.fifo = append(s.fifo, w[1:]...)
	case b == chip.ReadFIFO:
		n := copy(r, s.fifo)
		s.fifo = s.fifo[n:]
	case b&chip.ModeMask == chip.ModeCommand:
		s.command(b)
	case b&chip.ModeMask == chip.ModeReadReg:
		reg := b & chip.RegMask
		for i := range r {
			r[i] = s.readReg(reg + byte(i))
		}
	case b&chip.ModeMask == chip.ModeWriteReg:
		reg := b & chip.RegMask
		for i, v := range w[1:] {
			s.writeReg(reg+byte(i), v)
		}
	default:
		return fmt.Errorf("simulator: unsupported mode byte 0x%02X", b)
	}
	return nil
}

func (s *Simulator) readReg(reg byte) byte {
	switch reg {
	case chip.RegMainIntr, chip.RegTimerIntr, chip.RegErrorIntr, chip.RegPassiveIntr:
		shift := 8 * uint(reg-chip.RegMainIntr)
		v := byte(s.irq >> shift)
		s.irq &^= 0xFF << shift
		return v
	case chip.RegFIFOStatus1:
		return byte(len(s.fifo))
	case chip.RegFIFOStatus2:
		return byte(len(s.fifo)>>8) << 6 & chip.FIFOStatus2HighMask
	case chip.RegICIdentity:
		return s.identity
	default:
		return s.regs[reg&chip.RegMask]
	}
}

func (s *Simulator) writeReg(reg, v byte) {
	s.regs[reg&chip.RegMask] = v
	if reg == chip.RegOpCtrl && v&chip.OpTXEnable == 0 && s.tag != nil {
		s.tag.PowerOff()
	}
}

func (s *Simulator) command(cmd byte) {
	s.commands = append(s.commands, cmd)

	switch cmd {
	case chip.CmdSetDefault:
		s.regs = [64]byte{}
		s.fifo = nil
		s.irq = 0
		if s.tag != nil {
			s.tag.PowerOff()
		}
	case chip.CmdClearFIFO, chip.CmdStopAll:
		s.fifo = nil
	case chip.CmdMeasureAmplitude:
		if s.fieldOnLocked() {
			s.regs[chip.RegADConvOut] = s.amplitude
		} else {
			s.regs[chip.RegADConvOut] = 0
		}
		s.irq |= chip.IRQDCT
	case chip.CmdTransmitREQA, chip.CmdTransmitWUPA:
		s.irq |= chip.IRQTXEnd
		if s.fieldOnLocked() && s.tag != nil && s.tag.request(cmd == chip.CmdTransmitWUPA) {
			s.respond(BuildATQAResponse(len(s.tag.UID)))
			return
		}
		s.noResponse()
	case chip.CmdTransmitWithCRC, chip.CmdTransmitWithoutCRC:
		frame := s.fifo
		s.fifo = nil
		s.irq |= chip.IRQTXEnd
		s.handleFrame(frame)
	}
}

func (s *Simulator) handleFrame(frame []byte) {
	if !s.fieldOnLocked() || s.tag == nil || len(frame) == 0 {
		s.noResponse()
		return
	}

	anticollision := s.regs[chip.RegISO14443AConf]&chip.ISO14443AAnticollision != 0
	switch {
	case anticollision && len(frame) == 2 && frame[1] == 0x20:
		resp := s.tag.anticollision(levelOf(frame[0]))
		if resp == nil {
			s.noResponse()
			return
		}
		if s.corruptBCC > 0 {
			s.corruptBCC--
			resp[len(resp)-1] ^= 0xFF
		}
		s.respond(resp)
	case len(frame) == 7 && frame[1] == 0x70:
		sak, ok := s.tag.selectLevel(levelOf(frame[0]), frame[2:6])
		if !ok {
			s.noResponse()
			return
		}
		s.respond(BuildSAKResponse(sak))
	case frame[0] == 0xA2 && len(frame) == 6:
		ack, answered := s.tag.write(int(frame[1]), frame[2:6])
		switch {
		case !answered:
			s.noResponse()
		case ack:
			s.respond(BuildACKResponse())
		default:
			s.respond(BuildNAKResponse())
		}
	case frame[0] == 0x50:
		s.tag.halt()
		s.noResponse()
	default:
		s.noResponse()
	}
}

func (s *Simulator) respond(data []byte) {
	s.fifo = append([]byte(nil), data...)
	s.irq |= chip.IRQRXStart | chip.IRQRXEnd
}

func (s *Simulator) noResponse() {
	s.irq |= chip.IRQNoResponse
}

func levelOf(sel byte) int {
	switch sel {
	case 0x93:
		return 1
	case 0x95:
		return 2
	case 0x97:
		return 3
	default:
		return 0
	}
}
