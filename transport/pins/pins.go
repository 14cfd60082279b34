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

// Package pins drives the optional ST25R reset and IRQ lines over GPIO
package pins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Reset timing
const (
	DefaultPulseWidth = 10 * time.Millisecond
	DefaultSettleTime = 10 * time.Millisecond
)

// ErrPinNotFound is returned when a GPIO name is unknown to the host
var ErrPinNotFound = errors.New("GPIO pin not found")

// IRQ is the active high interrupt output of the chip. It stays high until
// the interrupt registers are read.
type IRQ struct {
	pin gpio.PinIn
}

// NewIRQ configures pin as a rising edge input
func NewIRQ(pin gpio.PinIn) (*IRQ, error) {
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("failed to configure IRQ pin %s: %w", pin, err)
	}
	return &IRQ{pin: pin}, nil
}

// OpenIRQ looks up the named pin, e.g. "GPIO24"
func OpenIRQ(name string) (*IRQ, error) {
	pin, err := byName(name)
	if err != nil {
		return nil, err
	}
	return NewIRQ(pin)
}

// WaitForInterrupt returns true once the line is high, or false after
// timeout
func (i *IRQ) WaitForInterrupt(timeout time.Duration) bool {
	if i.pin.Read() == gpio.High {
		return true
	}
	return i.pin.WaitForEdge(timeout)
}

// Close stops edge detection
func (i *IRQ) Close() error {
	return i.pin.Halt()
}

// String returns the pin name
func (i *IRQ) String() string {
	return i.pin.String()
}

// Reset drives an active low reset or enable input
type Reset struct {
	pin    gpio.PinOut
	width  time.Duration
	settle time.Duration
}

// NewReset configures pin as an output, released high
func NewReset(pin gpio.PinOut) (*Reset, error) {
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to configure reset pin %s: %w", pin, err)
	}
	return &Reset{pin: pin, width: DefaultPulseWidth, settle: DefaultSettleTime}, nil
}

// OpenReset looks up the named pin
func OpenReset(name string) (*Reset, error) {
	pin, err := byName(name)
	if err != nil {
		return nil, err
	}
	return NewReset(pin)
}

// SetTiming overrides the pulse width and the oscillator settle time
func (r *Reset) SetTiming(width, settle time.Duration) {
	r.width = width
	r.settle = settle
}

// Pulse holds the line low, releases it and waits for the chip to start
func (r *Reset) Pulse(ctx context.Context) error {
	if err := r.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset pin %s: %w", r.pin, err)
	}
	waitErr := wait(ctx, r.width)
	if err := r.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("reset pin %s: %w", r.pin, err)
	}
	if waitErr != nil {
		return waitErr
	}
	return wait(ctx, r.settle)
}

// String returns the pin name
func (r *Reset) String() string {
	return r.pin.String()
}

func byName(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return pin, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
