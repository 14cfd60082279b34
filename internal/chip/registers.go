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

package chip

// Bus access modes, the two top bits of the first byte of every frame
const (
	ModeWriteReg = 0x00
	ModeReadReg  = 0x40
	ModeFIFO     = 0x80
	ModeCommand  = 0xC0

	ModeMask = 0xC0
	RegMask  = 0x3F

	LoadFIFO = ModeFIFO | 0x00
	ReadFIFO = ModeFIFO | 0x1F
)

// Space A register addresses
const (
	RegIOConf1          = 0x00
	RegIOConf2          = 0x01
	RegOpCtrl           = 0x02
	RegModeDef          = 0x03
	RegBitRate          = 0x04
	RegISO14443AConf    = 0x05
	RegNoResponseTimer1 = 0x10
	RegNoResponseTimer2 = 0x11
	RegMaskMainIntr     = 0x16
	RegMaskTimerIntr    = 0x17
	RegMaskErrorIntr    = 0x18
	RegMaskPassiveIntr  = 0x19
	RegMainIntr         = 0x1A
	RegTimerIntr        = 0x1B
	RegErrorIntr        = 0x1C
	RegPassiveIntr      = 0x1D
	RegFIFOStatus1      = 0x1E
	RegFIFOStatus2      = 0x1F
	RegNumTX1           = 0x22
	RegNumTX2           = 0x23
	RegADConvOut        = 0x25
	RegTXDriver         = 0x28
	RegAuxDisp          = 0x31
	RegICIdentity       = 0x3F
)

// Direct commands, mode bits included
const (
	CmdSetDefault         = 0xC1
	CmdStopAll            = 0xC2
	CmdTransmitWithCRC    = 0xC4
	CmdTransmitWithoutCRC = 0xC5
	CmdTransmitREQA       = 0xC6
	CmdTransmitWUPA       = 0xC7
	CmdInitialFieldOn     = 0xC8
	CmdMeasureAmplitude   = 0xD3
	CmdResetRXGain        = 0xD5
	CmdAdjustRegulators   = 0xD6
	CmdClearFIFO          = 0xDB
)

// Operation control bits
const (
	OpTXEnable = 1 << 3
	OpRXEnable = 1 << 6
	OpEnable   = 1 << 7
)

// Mode definition values
const (
	ModeISO14443A = 1 << 3
)

// ISO14443A configuration bits
const (
	ISO14443AAnticollision = 1 << 0
)

// Interrupt bits, packed main | timer<<8 | error<<16 | passive<<24 in the
// order the interrupt registers are read
const (
	IRQCollision  = 1 << 2
	IRQTXEnd      = 1 << 3
	IRQRXEnd      = 1 << 4
	IRQRXStart    = 1 << 5
	IRQOscillator = 1 << 7

	IRQNoResponse = 1 << (8 + 6)
	IRQDCT        = 1 << (8 + 7)

	IRQHardFraming = 1 << (16 + 4)
	IRQSoftFraming = 1 << (16 + 5)
	IRQParity      = 1 << (16 + 6)
	IRQCRC         = 1 << (16 + 7)

	IRQErrors = IRQCRC | IRQParity | IRQSoftFraming | IRQHardFraming
)

// TX driver register layout
const (
	TXDriverResMask = 0x0F
)

// FIFO status 2 layout
const (
	FIFOStatus2HighMask  = 0xC0
	FIFOStatus2BitsShift = 1
	FIFOStatus2BitsMask  = 0x0E
	FIFOStatus2Overflow  = 1 << 4
)

// IC identity layout. The top five bits select the IC type, the low three
// the silicon revision.
const (
	ICTypeMask     = 0xF8
	ICRevisionMask = 0x07

	ICTypeST25R3911  = 0x08
	ICTypeST25R3916  = 0x28
	ICTypeST25R3916B = 0x30
)
