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

package st25r

import (
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

// NFC Forum Type 2 memory layout constants
const (
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
	tlvLongLength = 0xFF

	// ccBlock holds the capability container on Type 2 tags
	ccBlock = 3
)

// capabilityContainer is the default CC for an NTAG213-sized Type 2 tag:
// NDEF magic, version 1.0, 144 bytes data area, read/write access.
var capabilityContainer = []byte{0xE1, 0x10, 0x12, 0x00}

// EncodeNDEF wraps msg into an NDEF TLV followed by a terminator TLV, ready
// to be written from the first data block of a Type 2 tag.
func EncodeNDEF(msg *ndef.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("NDEF message cannot be nil")
	}
	body, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return wrapTLV(body)
}

func wrapTLV(body []byte) ([]byte, error) {
	if len(body) > 0xFFFE {
		return nil, fmt.Errorf("NDEF message too large: %d bytes", len(body))
	}

	out := make([]byte, 0, len(body)+5)
	out = append(out, tlvNDEF)
	if len(body) < tlvLongLength {
		out = append(out, byte(len(body)))
	} else {
		out = append(out, tlvLongLength, byte(len(body)>>8), byte(len(body)))
	}
	out = append(out, body...)
	return append(out, tlvTerminator), nil
}

// RequestWriteNDEF queues msg to be written as an NDEF TLV
func (d *Device) RequestWriteNDEF(msg *ndef.Message) error {
	payload, err := EncodeNDEF(msg)
	if err != nil {
		return err
	}
	return d.RequestWrite(payload)
}

// RequestWriteText queues a single NDEF text record
func (d *Device) RequestWriteText(text, language string) error {
	if language == "" {
		language = "en"
	}
	return d.RequestWriteNDEF(ndef.NewTextMessage(text, language))
}

// RequestWriteURI queues a single NDEF URI record
func (d *Device) RequestWriteURI(uri string) error {
	return d.RequestWriteNDEF(ndef.NewURIMessage(uri))
}

// RequestClean queues an empty NDEF message, erasing the tag content
func (d *Device) RequestClean() error {
	payload, err := wrapTLV(nil)
	if err != nil {
		return err
	}
	return d.RequestWrite(payload)
}

// RequestFormat writes the capability container followed by an empty NDEF
// message, turning a blank Type 2 tag into an NDEF formatted one. The
// write starts at the CC block regardless of the configured start block.
func (d *Device) RequestFormat() error {
	empty, err := wrapTLV(nil)
	if err != nil {
		return err
	}
	payload := make([]byte, 0, len(capabilityContainer)+len(empty))
	payload = append(payload, capabilityContainer...)
	payload = append(payload, empty...)
	return d.requestWriteAt(ccBlock, payload)
}
