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
	"sync"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/connect"
	"github.com/ZaparooProject/go-st25r/polling"
)

// Monitoring runs a scanner per reader and follows readers appearing and
// disappearing
type Monitoring struct {
	config    *Config
	output    *Output
	discovery *Discovery
	testing   *Testing
	readers   map[string]*monitoredReader
	mu        sync.Mutex
}

type monitoredReader struct {
	device  *st25r.Device
	opened  *connect.Opened
	scanner *polling.Scanner
}

// NewMonitoring creates a new monitoring handler
func NewMonitoring(config *Config, output *Output, discovery *Discovery, testing *Testing) *Monitoring {
	return &Monitoring{
		config:    config,
		output:    output,
		discovery: discovery,
		testing:   testing,
		readers:   make(map[string]*monitoredReader),
	}
}

// Run monitors tags until ctx is done, rescanning for readers periodically
func (m *Monitoring) Run(ctx context.Context) error {
	_, _ = fmt.Println("\nMonitoring for tags... (Ctrl+C to quit)")
	defer m.stopAll()

	var last []detection.DeviceInfo
	ticker := time.NewTicker(m.config.RescanInterval)
	defer ticker.Stop()

	for {
		current, err := m.discovery.DiscoverReaders(ctx)
		if err != nil && !errors.Is(err, detection.ErrNoDevicesFound) {
			m.output.Verbose("Discovery error: %v", err)
		}

		for _, reader := range FindDisconnectedReaders(last, current) {
			m.output.Info("Reader disconnected: %s", reader.Path)
			m.stop(reader.Path)
		}
		for _, reader := range FindNewReaders(last, current) {
			if err := m.start(ctx, reader); err != nil {
				m.output.Warning("Failed to start %s: %v", reader.Path, err)
				continue
			}
			m.output.OK("Monitoring %s", reader.Name)
		}
		last = current

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitoring) start(ctx context.Context, reader detection.DeviceInfo) error {
	device, opened, err := m.testing.OpenDevice(ctx, reader)
	if err != nil {
		return err
	}

	readerPath := reader.Path
	device.OnTagArrival(func(event st25r.TagEvent) { m.output.TagEvent(readerPath, event) })
	device.OnTagRemoved(func(event st25r.TagEvent) { m.output.TagEvent(readerPath, event) })

	pollCfg := polling.DefaultConfig()
	pollCfg.PollInterval = m.config.PollInterval
	pollCfg.IdleInterval = 4 * m.config.PollInterval
	pollCfg.IdleAfter = time.Minute

	scanner, err := polling.NewScanner(device, pollCfg)
	if err == nil {
		err = scanner.Start(ctx)
	}
	if err != nil {
		_ = device.Close()
		_ = opened.ReleasePins()
		return fmt.Errorf("failed to start scanner: %w", err)
	}

	m.mu.Lock()
	m.readers[readerPath] = &monitoredReader{device: device, opened: opened, scanner: scanner}
	m.mu.Unlock()
	return nil
}

func (m *Monitoring) stop(path string) {
	m.mu.Lock()
	reader, ok := m.readers[path]
	delete(m.readers, path)
	m.mu.Unlock()
	if !ok {
		return
	}

	_ = reader.scanner.Stop()
	metrics := reader.scanner.GetMetrics()
	m.output.Verbose("   %s: %d cycles, %d errors, %d tags", path,
		metrics.PollCycles, metrics.PollErrors, metrics.TagsDetected)
	_ = reader.device.Close()
	_ = reader.opened.ReleasePins()
}

func (m *Monitoring) stopAll() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.readers))
	for path := range m.readers {
		paths = append(paths, path)
	}
	m.mu.Unlock()

	for _, path := range paths {
		m.stop(path)
	}
}
