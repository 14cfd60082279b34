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

package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrBCCMismatch is returned when an anticollision answer fails its
	// check byte
	ErrBCCMismatch = errors.New("BCC mismatch")
	// ErrShortFrame is returned when a tag answer is shorter than expected
	ErrShortFrame = errors.New("frame too short")
	// ErrInvalidLevel is returned for cascade levels outside 1..3
	ErrInvalidLevel = errors.New("invalid cascade level")
)

// CalculateBCC returns the XOR of all bytes
func CalculateBCC(data []byte) byte {
	var bcc byte
	for _, b := range data {
		bcc ^= b
	}
	return bcc
}

// SelectCode returns the SEL byte for cascade level 1..3
func SelectCode(level int) (byte, error) {
	switch level {
	case 1:
		return SelCL1, nil
	case 2:
		return SelCL2, nil
	case 3:
		return SelCL3, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
}

// AnticollisionFrame builds the anticollision command for level
func AnticollisionFrame(level int) ([]byte, error) {
	sel, err := SelectCode(level)
	if err != nil {
		return nil, err
	}
	return []byte{sel, NVBAnticollision}, nil
}

// ParseAnticollision checks an anticollision answer and returns its four UID
// bytes, cascade tag included
func ParseAnticollision(resp []byte) ([]byte, error) {
	if len(resp) < AnticollisionAnswerLength {
		return nil, fmt.Errorf("%w: anticollision answer has %d bytes", ErrShortFrame, len(resp))
	}
	part := resp[:UIDPartLength]
	if CalculateBCC(part) != resp[UIDPartLength] {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrBCCMismatch, resp[UIDPartLength], CalculateBCC(part))
	}
	out := make([]byte, UIDPartLength)
	copy(out, part)
	return out, nil
}

// SelectFrame builds the select command for level and a four byte UID part
func SelectFrame(level int, part []byte) ([]byte, error) {
	sel, err := SelectCode(level)
	if err != nil {
		return nil, err
	}
	if len(part) != UIDPartLength {
		return nil, fmt.Errorf("%w: UID part has %d bytes", ErrShortFrame, len(part))
	}
	out := make([]byte, 0, 7)
	out = append(out, sel, NVBSelect)
	out = append(out, part...)
	return append(out, CalculateBCC(part)), nil
}

// AppendUIDPart appends the UID bytes carried by part. When cascade is set
// the first byte is the cascade tag and is dropped.
func AppendUIDPart(uid, part []byte, cascade bool) []byte {
	if cascade && len(part) > 0 && part[0] == CascadeTag {
		return append(uid, part[1:]...)
	}
	return append(uid, part...)
}

// SplitUID returns the per-level anticollision parts for a 4, 7 or 10 byte
// UID, inserting cascade tags the way a tag answers
func SplitUID(uid []byte) ([][]byte, error) {
	switch len(uid) {
	case 4:
		return [][]byte{append([]byte(nil), uid...)}, nil
	case 7:
		return [][]byte{
			{CascadeTag, uid[0], uid[1], uid[2]},
			append([]byte(nil), uid[3:7]...),
		}, nil
	case 10:
		return [][]byte{
			{CascadeTag, uid[0], uid[1], uid[2]},
			{CascadeTag, uid[3], uid[4], uid[5]},
			append([]byte(nil), uid[6:10]...),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported UID length %d", len(uid))
	}
}

// WriteFrame builds a Type 2 WRITE command for one four byte block
func WriteFrame(block byte, data []byte) ([]byte, error) {
	if len(data) != T2TBlockSize {
		return nil, fmt.Errorf("write data must be %d bytes, got %d", T2TBlockSize, len(data))
	}
	out := make([]byte, 0, 2+T2TBlockSize)
	out = append(out, T2TWrite, block)
	return append(out, data...), nil
}

// IsACK reports whether a 4 bit answer is a Type 2 ACK
func IsACK(resp []byte) bool {
	return len(resp) >= 1 && resp[0]&0x0F == ACK
}
