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

// Package spi provides the SPI transport for ST25R readers
package spi

import (
	"fmt"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeed is safe for every ST25R variant and typical wiring
	DefaultSpeed = 5 * physic.MegaHertz

	// The ST25R samples on the falling edge: CPOL=0, CPHA=1
	spiMode = spi.Mode1
	spiBits = 8
)

// ResetLine drives the reset input of the chip
type ResetLine = chip.ResetLine

// InterruptLine is the IRQ output of the chip
type InterruptLine = chip.InterruptLine

type options struct {
	reset           ResetLine
	irq             InterruptLine
	speed           physic.Frequency
	responseTimeout time.Duration
}

// Option configures the SPI transport
type Option func(*options)

// WithSpeed sets the SPI clock
func WithSpeed(speed physic.Frequency) Option {
	return func(o *options) {
		o.speed = speed
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
	opts := []chip.Option{chip.WithTransportType(st25r.TransportSPI)}
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

// Transport implements st25r.Transport over an SPI port
type Transport struct {
	*chip.Chip
	port     spi.PortCloser
	portName string
}

// New opens the named SPI port, e.g. "/dev/spidev0.0" or "SPI0.0"
func New(portName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	transport, err := NewFromPort(port, portName, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return transport, nil
}

// NewFromPort creates a transport on an already opened port. The transport
// owns the port and closes it on Close.
func NewFromPort(port spi.PortCloser, portName string, opts ...Option) (*Transport, error) {
	o := &options{speed: DefaultSpeed}
	for _, opt := range opts {
		opt(o)
	}

	conn, err := port.Connect(o.speed, spiMode, spiBits)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SPI port %s: %w", portName, err)
	}

	return &Transport{
		Chip:     chip.New(&bus{conn: conn, name: portName}, o.chipOptions()...),
		port:     port,
		portName: portName,
	}, nil
}

// Close switches the RF field off and releases the port
func (t *Transport) Close() error {
	chipErr := t.Chip.Close()
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", t.portName, err)
	}
	return chipErr
}

// String returns the port name
func (t *Transport) String() string {
	return t.portName
}

// bus adapts a full duplex SPI connection to the chip frame exchange. The
// chip answers while the rest of the frame is clocked out, so the read
// bytes follow the written ones.
type bus struct {
	conn spi.Conn
	name string
}

func (b *bus) Tx(w, r []byte) error {
	tx := make([]byte, len(w)+len(r))
	copy(tx, w)
	rx := make([]byte, len(tx))
	if err := b.conn.Tx(tx, rx); err != nil {
		return err
	}
	copy(r, rx[len(w):])
	return nil
}

func (b *bus) String() string {
	return b.name
}

var _ st25r.Transport = (*Transport)(nil)
