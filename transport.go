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
	"context"
)

// Transport is the chip-facing collaborator of the core. It is implemented by
// the SPI and I2C adapters and by test doubles. All calls are synchronous and
// must return within a bounded time; the core never assumes the adapter
// retries or caches anything.
type Transport interface {
	// ReadFieldPresence activates the field and reports the tag currently in
	// range, if any
	ReadFieldPresence(ctx context.Context) (Presence, error)

	// ReadFieldStrength measures the RF field amplitude
	ReadFieldStrength(ctx context.Context) (float64, error)

	// WriteBlock writes one block of tag memory at address
	WriteBlock(ctx context.Context, address byte, data []byte) error

	// SetPower sets the RF output power level (0-15)
	SetPower(ctx context.Context, level int) error

	// Reset puts the chip back into its configured default state
	Reset(ctx context.Context) error

	// Close releases the underlying bus
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// Presence is the result of a single field presence query
type Presence struct {
	UID     UID
	Present bool
}

// NoTag is the Presence reported when nothing answered in the field
var NoTag = Presence{}

// TagPresence builds a Presence for a tag that answered with uid
func TagPresence(uid []byte) Presence {
	return Presence{Present: true, UID: NewUID(uid)}
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// FieldSwitcher is implemented by transports that can turn the RF field on
// and off outside of a presence query
type FieldSwitcher interface {
	SetFieldEnabled(ctx context.Context, enabled bool) error
}

// ChipInfo describes the identity register of the chip
type ChipInfo struct {
	Model    string
	Identity byte
	Revision byte
}

// ChipIdentifier is implemented by transports that can read the chip identity
type ChipIdentifier interface {
	ChipIdentity(ctx context.Context) (ChipInfo, error)
}
