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

/*
Package st25r provides a pure Go driver for ST25R-class NFC/RFID front ends.

The driver detects tags entering and leaving the RF field, resolves their UIDs
against a registry of known tags, writes data to tags block by block and
reports everything to the host through ordered callbacks and queries.

Features:
  - SPI and I2C bus adapters built on periph.io
  - Debounced tag presence tracking with arrival and removal events
  - Registry of named tags with per-tag presence state
  - Block-by-block writes with completion events
  - NDEF text, URI, clean and format helpers
  - Optional IRQ-driven polling through the polling package
  - YAML configuration

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-st25r"
	    "github.com/ZaparooProject/go-st25r/polling"
	    "github.com/ZaparooProject/go-st25r/transport/spi"
	)

	transport, err := spi.New("/dev/spidev0.0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := st25r.New(transport,
	    st25r.WithTag("04-A1-3B-2C", "badge1"),
	    st25r.WithDebounce(2),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	device.OnTagArrival(func(ev st25r.TagEvent) {
	    fmt.Printf("Tag arrived: %s\n", ev.UIDString())
	})

	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}

	scanner, err := polling.NewScanner(device, nil)
	if err != nil {
	    log.Fatal(err)
	}
	if err := scanner.Start(ctx); err != nil {
	    log.Fatal(err)
	}

Execution Model:

A Device does nothing on its own. Each call to Device.Tick runs one bounded
detection cycle against the transport and emits that cycle's events before
returning. The polling.Scanner calls Tick on a fixed interval or when the IRQ
line fires. Tick is not reentrant; RequestWrite, IsWriting, FieldStrength and
Status may be called from any goroutine, including from event handlers.

Error Handling:

Bus failures never stop polling. They count as a missed detection for the
cycle they happened in:

	if errors.Is(err, st25r.ErrBusy) {
	    // A previous write has not finished yet
	}

Configuration errors such as duplicate UIDs or an out of range power level
are returned by New and LoadConfig as *ConfigError.
*/
package st25r
