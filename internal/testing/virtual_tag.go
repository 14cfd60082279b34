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
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"
)

// TagState is the ISO14443-3 state of a virtual tag
type TagState int

const (
	// StateIdle tags answer REQA and WUPA
	StateIdle TagState = iota
	// StateReady tags take part in anticollision
	StateReady
	// StateActive tags are selected and accept Type 2 commands
	StateActive
	// StateHalt tags only answer WUPA
	StateHalt
)

// Default test UIDs
var (
	TestNTAG213UID = []byte{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	TestShortUID   = []byte{0x04, 0xA1, 0x3B, 0x2C}
)

const (
	ntag213Pages  = 45
	pageSize      = 4
	firstUserPage = 4
	lastUserPage  = 39
	ccPage        = 3
)

// VirtualTag represents a simulated NFC Forum Type 2 tag for testing
type VirtualTag struct {
	Type     string
	UID      []byte
	Memory   [][]byte // Page based memory layout
	state    TagState
	level    int
	failNext int
	mu       sync.Mutex
}

// NewVirtualNTAG213 creates a virtual NTAG213 with an empty NDEF message
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestNTAG213UID
	}

	tag := &VirtualTag{
		Type:   "NTAG213",
		UID:    append([]byte(nil), uid...),
		Memory: make([][]byte, ntag213Pages),
	}
	for i := range tag.Memory {
		tag.Memory[i] = make([]byte, pageSize)
	}
	copy(tag.Memory[0], uid)
	tag.Memory[ccPage] = []byte{0xE1, 0x10, 0x12, 0x00}
	tag.Memory[firstUserPage] = []byte{0x03, 0x00, 0xFE, 0x00}
	return tag
}

// GetUIDString returns the UID as a hex string
func (v *VirtualTag) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// State returns the ISO14443-3 state
func (v *VirtualTag) State() TagState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// FailWrites makes the next n WRITE commands answer with a NAK
func (v *VirtualTag) FailWrites(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failNext = n
}

// ReadPage reads a specific memory page
func (v *VirtualTag) ReadPage(page int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if page < 0 || page >= len(v.Memory) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return append([]byte(nil), v.Memory[page]...), nil
}

// WritePage writes one page, as a WRITE command would
func (v *VirtualTag) WritePage(page int, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writePageLocked(page, data)
}

func (v *VirtualTag) writePageLocked(page int, data []byte) error {
	if page < 0 || page >= len(v.Memory) {
		return fmt.Errorf("page %d out of range", page)
	}
	if v.isPageWriteProtected(page) {
		return fmt.Errorf("page %d is write protected", page)
	}
	if len(data) != pageSize {
		return fmt.Errorf("data must be exactly %d bytes, got %d", pageSize, len(data))
	}
	copy(v.Memory[page], data)
	return nil
}

// UserMemory returns the content of the user pages
func (v *VirtualTag) UserMemory() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []byte
	for page := firstUserPage; page <= lastUserPage; page++ {
		out = append(out, v.Memory[page]...)
	}
	return out
}

// NDEFMessage returns the body of the first NDEF TLV in user memory
func (v *VirtualTag) NDEFMessage() ([]byte, error) {
	mem := v.UserMemory()
	for i := 0; i < len(mem); {
		switch mem[i] {
		case 0x00:
			i++
		case 0xFE:
			return nil, fmt.Errorf("no NDEF TLV before terminator")
		case 0x03:
			length, header, err := tlvLength(mem[i+1:])
			if err != nil {
				return nil, err
			}
			start := i + 1 + header
			if start+length > len(mem) {
				return nil, fmt.Errorf("NDEF TLV length %d exceeds memory", length)
			}
			return mem[start : start+length], nil
		default:
			length, header, err := tlvLength(mem[i+1:])
			if err != nil {
				return nil, err
			}
			i += 1 + header + length
		}
	}
	return nil, fmt.Errorf("no NDEF TLV found")
}

func tlvLength(b []byte) (length, header int, err error) {
	if len(b) < 1 {
		return 0, 0, fmt.Errorf("truncated TLV")
	}
	if b[0] != 0xFF {
		return int(b[0]), 1, nil
	}
	if len(b) < 3 {
		return 0, 0, fmt.Errorf("truncated TLV")
	}
	return int(b[1])<<8 | int(b[2]), 3, nil
}

// PowerOff puts the tag back into IDLE, as leaving the field does
func (v *VirtualTag) PowerOff() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateIdle
	v.level = 0
}

// request handles REQA and WUPA
func (v *VirtualTag) request(wakeup bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateIdle || (wakeup && v.state == StateHalt) {
		v.state = StateReady
		v.level = 1
		return true
	}
	return false
}

// anticollision answers the anticollision command for level
func (v *VirtualTag) anticollision(level int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady || level != v.level {
		return nil
	}
	parts, err := splitUID(v.UID)
	if err != nil || level > len(parts) {
		return nil
	}
	return BuildAnticollisionResponse(parts[level-1])
}

// selectLevel handles a select command and returns the SAK
func (v *VirtualTag) selectLevel(level int, part []byte) (byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady || level != v.level {
		return 0, false
	}
	parts, err := splitUID(v.UID)
	if err != nil || level > len(parts) || !bytes.Equal(parts[level-1], part) {
		return 0, false
	}
	if level < len(parts) {
		v.level++
		return 0x04, true
	}
	v.state = StateActive
	return 0x00, true
}

// write handles a Type 2 WRITE and reports whether it was acknowledged
func (v *VirtualTag) write(page int, data []byte) (ack, answered bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateActive {
		return false, false
	}
	if v.failNext > 0 {
		v.failNext--
		return false, true
	}
	return v.writePageLocked(page, data) == nil, true
}

func (v *VirtualTag) halt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateActive {
		v.state = StateHalt
	}
}

func (v *VirtualTag) isPageWriteProtected(page int) bool {
	// Pages 0-2 hold the UID and lock bytes, 40 and up the configuration
	return page < ccPage || page > lastUserPage
}

func splitUID(uid []byte) ([][]byte, error) {
	switch len(uid) {
	case 4:
		return [][]byte{uid}, nil
	case 7:
		return [][]byte{{0x88, uid[0], uid[1], uid[2]}, uid[3:7]}, nil
	case 10:
		return [][]byte{{0x88, uid[0], uid[1], uid[2]}, {0x88, uid[3], uid[4], uid[5]}, uid[6:10]}, nil
	default:
		return nil, fmt.Errorf("unsupported UID length %d", len(uid))
	}
}
