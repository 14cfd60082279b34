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
	"errors"
	"fmt"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/connect"
)

// errNoTagDetected is returned when no tag arrived before the detect timeout
var errNoTagDetected = errors.New("no tag detected")

// Testing handles reader and tag testing
type Testing struct {
	config    *Config
	output    *Output
	discovery *Discovery
}

// NewTesting creates a new testing handler
func NewTesting(config *Config, output *Output, discovery *Discovery) *Testing {
	return &Testing{
		config:    config,
		output:    output,
		discovery: discovery,
	}
}

// OpenDevice opens and initializes a detected reader. The returned device
// owns the transport; release the pins after closing it.
func (t *Testing) OpenDevice(ctx context.Context, reader detection.DeviceInfo) (*st25r.Device, *connect.Opened, error) {
	opened, err := t.discovery.Open(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := st25r.NewFromConfig(opened.Transport, t.config.Device)
	if err != nil {
		_ = opened.Close()
		return nil, nil, fmt.Errorf("failed to create device: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, t.config.ConnectTimeout)
	defer cancel()
	if err := device.InitContext(initCtx); err != nil {
		_ = device.Close()
		_ = opened.ReleasePins()
		return nil, nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	return device, opened, nil
}

// TestReader performs basic connectivity tests on a reader and, unless
// waitForTag is false, waits for a tag to be presented
func (t *Testing) TestReader(ctx context.Context, reader detection.DeviceInfo, waitForTag bool) error {
	t.output.ReaderTestHeader(reader)

	device, opened, err := t.OpenDevice(ctx, reader)
	if err != nil {
		t.output.TestFailure()
		return err
	}
	defer func() {
		if closeErr := device.Close(); closeErr != nil {
			t.output.Verbose("Warning: device close failed: %v", closeErr)
		}
		_ = opened.ReleasePins()
	}()

	info, err := chipIdentity(ctx, device)
	if err != nil {
		t.output.TestFailure()
		return err
	}

	// One cycle measures the field with the configured power level
	if err := device.Tick(ctx); err != nil {
		t.output.TestFailure()
		return fmt.Errorf("detection cycle failed: %w", err)
	}
	t.output.TestSuccess(reader, info, device.FieldStrength())

	if !waitForTag {
		return nil
	}
	return t.waitForTag(ctx, reader, device)
}

func chipIdentity(ctx context.Context, device *st25r.Device) (st25r.ChipInfo, error) {
	identifier, ok := device.Transport().(st25r.ChipIdentifier)
	if !ok {
		return st25r.ChipInfo{}, errors.New("transport does not report a chip identity")
	}
	info, err := identifier.ChipIdentity(ctx)
	if err != nil {
		return st25r.ChipInfo{}, fmt.Errorf("failed to read chip identity: %w", err)
	}
	return info, nil
}

// waitForTag ticks the device until a tag arrives or the detect timeout
// expires
func (t *Testing) waitForTag(ctx context.Context, reader detection.DeviceInfo, device *st25r.Device) error {
	_, _ = fmt.Printf("   Present a tag to %s (timeout %s)...\n", reader.Path, t.config.DetectTimeout)

	arrived := make(chan st25r.TagEvent, 1)
	device.OnTagArrival(func(event st25r.TagEvent) {
		select {
		case arrived <- event:
		default:
		}
	})

	detectCtx, cancel := context.WithTimeout(ctx, t.config.DetectTimeout)
	defer cancel()

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := device.Tick(detectCtx); err != nil {
			if detectCtx.Err() != nil {
				return errNoTagDetected
			}
			return fmt.Errorf("detection cycle failed: %w", err)
		}

		select {
		case event := <-arrived:
			t.output.TagEvent(reader.Path, event)
			stats := device.Stats()
			t.output.Verbose("   %d cycles, %d transport errors", stats.Cycles, stats.TransportErrors)
			return nil
		case <-detectCtx.Done():
			return errNoTagDetected
		case <-ticker.C:
		}
	}
}
