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

// Package i2c provides the I2C transport for ST25R readers
package i2c

import (
	"fmt"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7 bit ST25R I2C address
	DefaultAddress = 0x50

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// ResetLine drives the reset input of the chip
type ResetLine = chip.ResetLine

// InterruptLine is the IRQ output of the chip
type InterruptLine = chip.InterruptLine

type options struct {
	reset           ResetLine
	irq             InterruptLine
	responseTimeout time.Duration
	address         uint16
}

// Option configures the I2C transport
type Option func(*options)

// WithAddress overrides the device address
func WithAddress(addr uint16) Option {
	return func(o *options) {
		o.address = addr
	}
}

// WithResetLine pulses line whenever the chip is reset
func WithResetLine(line ResetLine) Option {
	return func(o *options) {
		o.reset = line
	}
}

// WithInterruptLine waits on the chip IRQ output instead of polling the
// interrupt registers
func WithInterruptLine(line InterruptLine) Option {
	return func(o *options) {
		o.irq = line
	}
}

// WithResponseTimeout sets how long to wait for a tag answer
func WithResponseTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.responseTimeout = timeout
	}
}

func (o *options) chipOptions() []chip.Option {
	opts := []chip.Option{chip.WithTransportType(st25r.TransportI2C)}
	if o.reset != nil {
		opts = append(opts, chip.WithResetLine(o.reset))
	}
	if o.irq != nil {
		opts = append(opts, chip.WithInterruptLine(o.irq))
	}
	if o.responseTimeout > 0 {
		opts = append(opts, chip.WithResponseTimeout(o.responseTimeout))
	}
	return opts
}

// Transport implements st25r.Transport over an I2C bus
type Transport struct {
	*chip.Chip
	bus     i2c.BusCloser
	busName string
}

// New opens the named I2C bus, e.g. "/dev/i2c-1" or "1"
func New(busName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	return NewFromBus(bus, busName, opts...), nil
}

// NewFromBus creates a transport on an already opened bus. The transport
// owns the bus and closes it on Close.
func NewFromBus(bus i2c.BusCloser, busName string, opts ...Option) *Transport {
	o := &options{address: DefaultAddress}
	for _, opt := range opts {
		opt(o)
	}

	dev := &i2c.Dev{Addr: o.address, Bus: bus}
	return &Transport{
		Chip:    chip.New(&devBus{dev: dev, name: fmt.Sprintf("%s@0x%02X", busName, o.address)}, o.chipOptions()...),
		bus:     bus,
		busName: busName,
	}
}

// Close switches the RF field off and releases the bus
func (t *Transport) Close() error {
	chipErr := t.Chip.Close()
	if err := t.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return chipErr
}

// String returns the bus name
func (t *Transport) String() string {
	return t.busName
}

// devBus sends the mode byte and payload in one write; reads use a
// repeated start after the mode byte
type devBus struct {
	dev  *i2c.Dev
	name string
}

func (b *devBus) Tx(w, r []byte) error {
	return b.dev.Tx(w, r)
}

func (b *devBus) String() string {
	return b.name
}

var _ st25r.Transport = (*Transport)(nil)
