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
	"log"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebugEnabled turns debug logging on or off for the whole package
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs a formatted message when debug output is enabled. Exported for
// use by the bus adapters.
func Debugf(format string, args ...any) {
	debugf(format, args...)
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf("[st25r] "+format, args...)
	}
}

func debugln(args ...any) {
	if debugEnabled.Load() {
		log.Println(append([]any{"[st25r]"}, args...)...)
	}
}
