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

// Package connect opens the transport described by a configuration or a
// detection result
package connect

import (
	"errors"
	"fmt"
	"strings"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/transport/i2c"
	"github.com/ZaparooProject/go-st25r/transport/pins"
	"github.com/ZaparooProject/go-st25r/transport/spi"
	"periph.io/x/conn/v3/physic"
)

// ErrNoTransport is returned when neither a type nor a path was configured
var ErrNoTransport = errors.New("no transport configured")

// Opened is an open transport together with the GPIO lines it uses. Once a
// Device owns the transport only ReleasePins is left to the caller.
type Opened struct {
	Transport st25r.Transport
	IRQ       *pins.IRQ
	reset     *pins.Reset
}

// Close closes the transport, then the GPIO lines
func (o *Opened) Close() error {
	err := o.Transport.Close()
	if o.IRQ != nil {
		err = errors.Join(err, o.IRQ.Close())
	}
	return err
}

// InferType guesses the transport type from a device path
func InferType(path string) (st25r.TransportType, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "i2c"):
		return st25r.TransportI2C, nil
	case strings.Contains(lower, "spi"):
		return st25r.TransportSPI, nil
	default:
		return "", fmt.Errorf("cannot infer transport type from path %q", path)
	}
}

// SplitI2CPath separates "/dev/i2c-1:0x51" into the bus and the address.
// Paths without an address use the default one.
func SplitI2CPath(path string) (bus string, addr uint16, err error) {
	bus, rawAddr, found := strings.Cut(path, ":")
	if !found {
		return bus, i2c.DefaultAddress, nil
	}
	if _, err := fmt.Sscanf(rawAddr, "0x%x", &addr); err != nil {
		return "", 0, fmt.Errorf("invalid I2C address %q: %w", rawAddr, err)
	}
	return bus, addr, nil
}

// FromConfig opens the transport and pins named in cfg
func FromConfig(cfg *st25r.Config) (*Opened, error) {
	tc := cfg.Transport
	if tc.Path == "" {
		return nil, ErrNoTransport
	}
	if tc.Type == "" {
		inferred, err := InferType(tc.Path)
		if err != nil {
			return nil, err
		}
		tc.Type = inferred
	}

	opened := &Opened{}
	if cfg.IRQPin != "" {
		irq, err := pins.OpenIRQ(cfg.IRQPin)
		if err != nil {
			return nil, err
		}
		opened.IRQ = irq
	}
	if cfg.ResetPin != "" {
		reset, err := pins.OpenReset(cfg.ResetPin)
		if err != nil {
			_ = opened.ReleasePins()
			return nil, err
		}
		opened.reset = reset
	}

	transport, err := opened.open(tc)
	if err != nil {
		_ = opened.ReleasePins()
		return nil, err
	}
	opened.Transport = transport
	return opened, nil
}

// FromDevice opens a detected reader. Pins and bus settings still come from
// cfg.
func FromDevice(device detection.DeviceInfo, cfg *st25r.Config) (*Opened, error) {
	withDevice := cfg.Clone()
	withDevice.Transport.Type = st25r.TransportType(device.Transport)
	withDevice.Transport.Path = device.Path
	return FromConfig(withDevice)
}

func (o *Opened) open(tc st25r.TransportConfig) (st25r.Transport, error) {
	switch tc.Type {
	case st25r.TransportSPI:
		var opts []spi.Option
		if tc.SpeedHz > 0 {
			opts = append(opts, spi.WithSpeed(physic.Frequency(tc.SpeedHz)*physic.Hertz))
		}
		if o.IRQ != nil {
			opts = append(opts, spi.WithInterruptLine(o.IRQ))
		}
		if o.reset != nil {
			opts = append(opts, spi.WithResetLine(o.reset))
		}
		transport, err := spi.New(tc.Path, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	case st25r.TransportI2C:
		bus, addr, err := SplitI2CPath(tc.Path)
		if err != nil {
			return nil, err
		}
		if tc.Address != 0 {
			addr = tc.Address
		}
		opts := []i2c.Option{i2c.WithAddress(addr)}
		if o.IRQ != nil {
			opts = append(opts, i2c.WithInterruptLine(o.IRQ))
		}
		if o.reset != nil {
			opts = append(opts, i2c.WithResetLine(o.reset))
		}
		transport, err := i2c.New(bus, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", tc.Type)
	}
}

// ReleasePins stops edge detection on the IRQ line
func (o *Opened) ReleasePins() error {
	if o.IRQ != nil {
		return o.IRQ.Close()
	}
	return nil
}
