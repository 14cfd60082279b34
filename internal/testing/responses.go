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

// BuildATQAResponse creates the answer to REQA/WUPA of a Type 2 tag with a
// UID of uidLen bytes
func BuildATQAResponse(uidLen int) []byte {
	switch uidLen {
	case 7:
		return []byte{0x44, 0x00}
	case 10:
		return []byte{0x84, 0x00}
	default:
		return []byte{0x04, 0x00}
	}
}

// BuildAnticollisionResponse creates an anticollision answer: the four UID
// bytes of the level followed by their BCC
func BuildAnticollisionResponse(part []byte) []byte {
	var bcc byte
	for _, b := range part {
		bcc ^= b
	}
	resp := make([]byte, 0, len(part)+1)
	resp = append(resp, part...)
	return append(resp, bcc)
}

// BuildSAKResponse creates a select answer. The chip leaves the two CRC
// bytes in the FIFO.
func BuildSAKResponse(sak byte) []byte {
	return []byte{sak, 0x00, 0x00}
}

// BuildACKResponse creates the 4 bit Type 2 ACK
func BuildACKResponse() []byte {
	return []byte{0x0A}
}

// BuildNAKResponse creates the 4 bit Type 2 NAK for an invalid argument
func BuildNAKResponse() []byte {
	return []byte{0x00}
}
