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

package detection

import (
	"path/filepath"
	"strings"
)

// IsPathIgnored reports whether devicePath matches one of ignorePaths.
// Entries are compared after cleaning and case folding and may be shell
// patterns, e.g. "/dev/spidev1.*" or "/dev/i2c-1:*".
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}

	device := normalizedPath(devicePath)
	for _, entry := range ignorePaths {
		if entry == "" {
			continue
		}
		pattern := normalizedPath(entry)
		if device == pattern {
			return true
		}
		if matched, err := filepath.Match(pattern, device); err == nil && matched {
			return true
		}
	}
	return false
}

// normalizedPath cleans the bus part of a path and folds case. The address
// suffix of I2C paths ("/dev/i2c-1:0x50") is kept as is.
func normalizedPath(path string) string {
	bus, addr, found := strings.Cut(strings.TrimSpace(path), ":")
	bus = filepath.Clean(bus)
	if found {
		bus += ":" + addr
	}
	return strings.ToLower(bus)
}
