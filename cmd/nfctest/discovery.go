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
	"context"
	"fmt"

	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/connect"
)

// Discovery handles reader discovery and transport creation
type Discovery struct {
	config *Config
	output *Output
}

// NewDiscovery creates a new discovery handler
func NewDiscovery(config *Config, output *Output) *Discovery {
	return &Discovery{
		config: config,
		output: output,
	}
}

// DiscoverReaders discovers all available ST25R readers
func (d *Discovery) DiscoverReaders(ctx context.Context) ([]detection.DeviceInfo, error) {
	d.output.Verbose("Discovering readers (%s detection)...", d.config.DetectMode)

	opts := detection.DefaultOptions()
	opts.Timeout = d.config.ConnectTimeout
	opts.Mode = d.config.DetectMode
	opts.IgnorePaths = d.config.IgnorePaths

	readers, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("reader discovery failed: %w", err)
	}

	d.output.Verbose("   Found %d reader(s)", len(readers))
	return readers, nil
}

// Open opens the transport and pins for a detected reader
func (d *Discovery) Open(reader detection.DeviceInfo) (*connect.Opened, error) {
	return connect.FromDevice(reader, d.config.Device)
}

// FindNewReaders finds readers that are new compared to the last scan
func FindNewReaders(lastReaders, currentReaders []detection.DeviceInfo) []detection.DeviceInfo {
	return missingFrom(currentReaders, lastReaders)
}

// FindDisconnectedReaders finds readers that were present but are now gone
func FindDisconnectedReaders(lastReaders, currentReaders []detection.DeviceInfo) []detection.DeviceInfo {
	return missingFrom(lastReaders, currentReaders)
}

// missingFrom returns the readers of a that are not in b
func missingFrom(a, b []detection.DeviceInfo) []detection.DeviceInfo {
	var missing []detection.DeviceInfo
	for _, candidate := range a {
		found := false
		for _, other := range b {
			if candidate.Path == other.Path && candidate.Transport == other.Transport {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, candidate)
		}
	}
	return missing
}
