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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// UID is the unique identifier broadcast by a tag. Equality is byte-exact.
type UID []byte

// NewUID returns a UID holding a copy of b, so later changes to b are not
// visible through the UID.
func NewUID(b []byte) UID {
	if len(b) == 0 {
		return nil
	}
	u := make(UID, len(b))
	copy(u, b)
	return u
}

// ParseUID parses the hyphen separated form used in configuration files,
// e.g. "04-A1-3B-2C". Every group must be exactly two hex digits.
func ParseUID(s string) (UID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ConfigError{Field: "uid", Value: s, Err: ErrInvalidUID}
	}

	parts := strings.Split(s, "-")
	uid := make(UID, 0, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return nil, &ConfigError{
				Field: "uid",
				Value: s,
				Err:   fmt.Errorf("%w: group %d %q must be two characters long", ErrInvalidUID, i, part),
			}
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, &ConfigError{
				Field: "uid",
				Value: s,
				Err:   fmt.Errorf("%w: group %d %q is not in 00-FF", ErrInvalidUID, i, part),
			}
		}
		uid = append(uid, b[0])
	}
	return uid, nil
}

// MustParseUID is like ParseUID but panics on error. Intended for tests and
// static tables.
func MustParseUID(s string) UID {
	uid, err := ParseUID(s)
	if err != nil {
		panic(err)
	}
	return uid
}

// String returns the hyphenated uppercase form, e.g. "04-A1-3B-2C".
func (u UID) String() string {
	if len(u) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(u)*3 - 1)
	for i, b := range u {
		if i > 0 {
			_ = sb.WriteByte('-')
		}
		_, _ = fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// Hex returns the compact uppercase form without separators, e.g. "04A13B2C".
func (u UID) Hex() string {
	return strings.ToUpper(hex.EncodeToString(u))
}

// Equal reports whether both UIDs hold the same bytes.
func (u UID) Equal(other UID) bool {
	return bytes.Equal(u, other)
}

// IsValid reports whether the UID has a usable length. Zero-length UIDs come
// from malformed reads and never identify a tag.
func (u UID) IsValid() bool {
	return len(u) > 0
}

func (u UID) key() string {
	return string(u)
}
