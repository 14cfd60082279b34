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

package main

import (
	"fmt"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
)

// Output handles consistent formatting of messages
type Output struct {
	verbose bool
}

// NewOutput creates a new output handler
func NewOutput(verbose bool) *Output {
	return &Output{verbose: verbose}
}

// ReaderTestHeader prints the appropriate header for reader testing
func (o *Output) ReaderTestHeader(reader detection.DeviceInfo) {
	if o.verbose {
		_, _ = fmt.Printf("Testing reader: %s (%s confidence)\n", reader.Name, reader.Confidence)
	} else {
		_, _ = fmt.Printf("Testing %s reader at %s... ", reader.Transport, reader.Path)
	}
}

// TestFailure prints failure indicator for non-verbose mode
func (o *Output) TestFailure() {
	if !o.verbose {
		_, _ = fmt.Print("FAIL\n")
	}
}

// TestSuccess prints the chip identity and the measured field strength
func (o *Output) TestSuccess(reader detection.DeviceInfo, info st25r.ChipInfo, strength float64) {
	if o.verbose {
		_, _ = fmt.Printf("   OK: Chip: %s revision %d (identity 0x%02X)\n", info.Model, info.Revision, info.Identity)
		_, _ = fmt.Printf("   OK: Field strength: %.2f\n", strength)
		_, _ = fmt.Printf("   OK: Device: %s\n", reader.Path)
	} else {
		_, _ = fmt.Printf("OK: (%s rev %d, field %.2f)\n", info.Model, info.Revision, strength)
	}
}

// TagEvent prints an arrival or removal
func (*Output) TagEvent(readerPath string, event st25r.TagEvent) {
	name := ""
	if event.Identity != nil {
		name = " [" + event.Identity.Name + "]"
	}
	switch event.Kind {
	case st25r.EventArrival:
		_, _ = fmt.Printf("\nTAG: Tag detected on %s: UID %s%s\n", readerPath, event.UIDString(), name)
	default:
		_, _ = fmt.Printf("TAG: Tag removed from %s: UID %s%s\n", readerPath, event.UIDString(), name)
	}
}

// Error prints an error message
func (*Output) Error(format string, args ...any) {
	_, _ = fmt.Printf("ERROR: "+format+"\n", args...)
}

// Warning prints a warning message
func (*Output) Warning(format string, args ...any) {
	_, _ = fmt.Printf("WARNING: "+format+"\n", args...)
}

// Info prints an info message
func (*Output) Info(format string, args ...any) {
	_, _ = fmt.Printf("INFO: "+format+"\n", args...)
}

// OK prints a success message
func (*Output) OK(format string, args ...any) {
	_, _ = fmt.Printf("OK: "+format+"\n", args...)
}

// Verbose prints only if verbose mode is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Printf(format+"\n", args...)
	}
}
