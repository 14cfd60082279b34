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
	"bytes"
	"errors"
	"testing"
)

func TestCalculateBCC(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "four byte UID",
			data: []byte{0x04, 0xA1, 0x3B, 0x2C},
			want: 0x04 ^ 0xA1 ^ 0x3B ^ 0x2C,
		},
		{
			name: "cascade part",
			data: []byte{CascadeTag, 0x04, 0x12, 0x34},
			want: 0x88 ^ 0x04 ^ 0x12 ^ 0x34,
		},
		{
			name: "self cancelling",
			data: []byte{0xFF, 0xFF},
			want: 0x00,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateBCC(tt.data); got != tt.want {
				t.Errorf("CalculateBCC() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestParseAnticollision(t *testing.T) {
	t.Parallel()
	part := []byte{0x04, 0xA1, 0x3B, 0x2C}
	good := append(append([]byte(nil), part...), CalculateBCC(part))

	tests := []struct {
		wantErr error
		name    string
		resp    []byte
	}{
		{name: "valid", resp: good},
		{name: "bad BCC", resp: []byte{0x04, 0xA1, 0x3B, 0x2C, 0x00}, wantErr: ErrBCCMismatch},
		{name: "truncated", resp: good[:4], wantErr: ErrShortFrame},
		{name: "empty", resp: nil, wantErr: ErrShortFrame},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAnticollision(tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseAnticollision() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAnticollision() unexpected error: %v", err)
			}
			if !bytes.Equal(got, part) {
				t.Errorf("ParseAnticollision() = %X, want %X", got, part)
			}
		})
	}
}

func TestSelectFrame(t *testing.T) {
	t.Parallel()

	got, err := SelectFrame(2, []byte{0x01, 0x02, 0x03, 0x04})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{SelCL2, NVBSelect, 0x01, 0x02, 0x03, 0x04, 0x04}
	if !bytes.Equal(got, want) {
		t.Errorf("SelectFrame() = %X, want %X", got, want)
	}

	if _, err := SelectFrame(4, []byte{0x01, 0x02, 0x03, 0x04}); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("SelectFrame(4) error = %v, want ErrInvalidLevel", err)
	}
	if _, err := SelectFrame(1, []byte{0x01}); err == nil {
		t.Error("SelectFrame() with short part should fail")
	}
}

func TestSplitUIDRoundTrip(t *testing.T) {
	t.Parallel()

	uids := [][]byte{
		{0x04, 0xA1, 0x3B, 0x2C},
		{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC},
		{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
	}

	for _, uid := range uids {
		parts, err := SplitUID(uid)
		if err != nil {
			t.Fatal(err)
		}
		var rebuilt []byte
		for i, part := range parts {
			rebuilt = AppendUIDPart(rebuilt, part, i < len(parts)-1)
		}
		if !bytes.Equal(rebuilt, uid) {
			t.Errorf("round trip of %X gave %X", uid, rebuilt)
		}
	}

	if _, err := SplitUID([]byte{0x01, 0x02}); err == nil {
		t.Error("SplitUID() with 2 bytes should fail")
	}
}

func TestWriteFrame(t *testing.T) {
	t.Parallel()

	got, err := WriteFrame(5, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{T2TWrite, 0x05, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(got, want) {
		t.Errorf("WriteFrame() = %X, want %X", got, want)
	}
	if _, err := WriteFrame(5, []byte{0x01}); err == nil {
		t.Error("WriteFrame() with short data should fail")
	}
}

func TestIsACK(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		resp []byte
		want bool
	}{
		{name: "ack", resp: []byte{0x0A}, want: true},
		{name: "ack with noise in upper nibble", resp: []byte{0xFA}, want: true},
		{name: "nak", resp: []byte{0x00}, want: false},
		{name: "nak crc", resp: []byte{0x01}, want: false},
		{name: "empty", resp: nil, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsACK(tt.resp); got != tt.want {
				t.Errorf("IsACK(%X) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}
}
