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

// Package spi detects ST25R readers on SPI ports by reading the IC identity
// register
package spi

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// probeSpeed is kept low so that long or unterminated wiring still answers
const probeSpeed = physic.MegaHertz

// portGlob matches the Linux spidev nodes
var portGlob = "/dev/spidev*"

// detector implements the Detector interface for SPI devices
type detector struct {
	open func(name string) (spi.PortCloser, error)
}

// New creates a new SPI detector
func New() detection.Detector {
	return &detector{open: openPort}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(st25r.TransportSPI)
}

// Detect searches for ST25R devices on spidev ports
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}

	ports, err := filepath.Glob(portGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for SPI devices: %w", err)
	}
	return d.detectPorts(ctx, ports, opts)
}

func (d *detector) detectPorts(
	ctx context.Context, ports []string, opts *detection.Options,
) ([]detection.DeviceInfo, error) {
	var devices []detection.DeviceInfo
	for _, path := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if detection.IsPathIgnored(path, opts.IgnorePaths) {
			continue
		}

		var id byte
		var probeErr error
		if opts.Mode != detection.Passive {
			id, probeErr = d.readIdentity(path)
		}
		if device, keep := deviceInfo(path, id, probeErr, opts.Mode); keep {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func openPort(name string) (spi.PortCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", name, err)
	}
	return port, nil
}

// readIdentity clocks out the identity read and returns the byte shifted in
// after the mode byte
func (d *detector) readIdentity(path string) (byte, error) {
	port, err := d.open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = port.Close() }()

	conn, err := port.Connect(probeSpeed, spi.Mode1, 8)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to SPI port %s: %w", path, err)
	}

	rx := make([]byte, 2)
	if err := conn.Tx([]byte{chip.ModeReadReg | chip.RegICIdentity, 0x00}, rx); err != nil {
		return 0, fmt.Errorf("identity read on %s: %w", path, err)
	}
	return rx[1], nil
}

// deviceInfo builds the result for one probed port
func deviceInfo(path string, id byte, probeErr error, mode detection.Mode) (detection.DeviceInfo, bool) {
	answered := probeErr == nil && id != 0x00 && id != 0xFF
	info := chip.Identify(id)
	known := answered && info.Model != "unknown"

	confidence, keep := detection.Classify(mode, answered, known)
	if !keep {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  string(st25r.TransportSPI),
		Path:       path,
		Name:       "SPI device at " + path,
		Confidence: confidence,
		Metadata:   map[string]string{"port": path},
	}
	if known {
		device.Name = fmt.Sprintf("%s on %s", info.Model, path)
		device.Metadata["model"] = info.Model
		device.Metadata["identity"] = fmt.Sprintf("0x%02X", info.Identity)
		device.Metadata["revision"] = fmt.Sprintf("%d", info.Revision)
	}
	return device, true
}
