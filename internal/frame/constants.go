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

// Package frame provides ISO/IEC 14443-3 Type A framing helpers used to
// select tags and exchange NFC Forum Type 2 commands
package frame

// Short frames sent by the reader
const (
	REQA = 0x26 // Request, answered by tags in IDLE state
	WUPA = 0x52 // Wake-up, also answered by HALTed tags

	// ShortFrameBits is the number of valid bits in a REQA or WUPA frame
	ShortFrameBits = 7
)

// Anticollision and select commands per cascade level
const (
	SelCL1 = 0x93
	SelCL2 = 0x95
	SelCL3 = 0x97

	NVBAnticollision = 0x20 // Only SEL and NVB are sent
	NVBSelect        = 0x70 // SEL, NVB, four UID bytes and BCC

	CascadeTag = 0x88 // Marks an incomplete UID part in an anticollision answer
	MaxLevels  = 3
)

// SAK bits
const (
	SAKCascade = 0x04 // UID not complete, go to the next cascade level
	SAKISO4    = 0x20 // Tag supports ISO/IEC 14443-4
)

// NFC Forum Type 2 commands
const (
	T2TRead  = 0x30
	T2TWrite = 0xA2
	HLTA     = 0x50

	// ACK is the 4 bit acknowledge returned after a successful WRITE
	ACK     = 0x0A
	ACKBits = 4

	// T2TBlockSize is the number of bytes written by one WRITE command
	T2TBlockSize = 4
)

// Frame size limits
const (
	AnticollisionAnswerLength = 5 // Four UID bytes and BCC
	ATQALength                = 2
	UIDPartLength             = 4
)
