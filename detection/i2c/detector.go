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

// Package i2c detects ST25R readers on Linux I2C buses by reading the IC
// identity register at the default address
package i2c

import (
	"context"
	"fmt"
	"runtime"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	transport "github.com/ZaparooProject/go-st25r/transport/i2c"
)

// detector implements the Detector interface for I2C devices
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(st25r.TransportI2C)
}

// Detect searches for ST25R devices on I2C buses
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	return detectLinux(ctx, opts)
}

// deviceInfo builds the result for one probed address. probeErr is nil
// when the identity register was read.
func deviceInfo(busPath string, addr uint16, id byte, probeErr error, mode detection.Mode) (detection.DeviceInfo, bool) {
	answered := probeErr == nil && id != 0x00 && id != 0xFF
	info := chip.Identify(id)
	known := answered && info.Model != "unknown"

	confidence, keep := detection.Classify(mode, answered, known)
	if !keep {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  string(st25r.TransportI2C),
		Path:       fmt.Sprintf("%s:0x%02X", busPath, addr),
		Name:       fmt.Sprintf("I2C device at %s address 0x%02X", busPath, addr),
		Confidence: confidence,
		Metadata: map[string]string{
			"bus":     busPath,
			"address": fmt.Sprintf("0x%02X", addr),
		},
	}
	if known {
		device.Name = fmt.Sprintf("%s on %s", info.Model, busPath)
		device.Metadata["model"] = info.Model
		device.Metadata["identity"] = fmt.Sprintf("0x%02X", info.Identity)
		device.Metadata["revision"] = fmt.Sprintf("%d", info.Revision)
	}
	return device, true
}

// candidateAddresses are probed on every bus
var candidateAddresses = []uint16{transport.DefaultAddress}
