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

// Package detection finds ST25R readers attached to the host. Bus specific
// detectors register themselves from their init functions; import
// detection/i2c and detection/spi for their side effects.
package detection

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Mode controls how intrusive detection is
type Mode int

const (
	// Passive only lists candidate buses without talking to any device
	Passive Mode = iota
	// Safe reads the read-only IC identity register
	Safe
	// Full also reports candidates whose identity could not be confirmed
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Confidence rates how likely a candidate is an ST25R
type Confidence int

const (
	// Low is a bus that could host a reader
	Low Confidence = iota
	// Medium is a device answering at the expected address
	Medium
	// High is a device that returned a known IC identity
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a detected reader
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// Options configures detection
type Options struct {
	IgnorePaths []string
	Transports  []string
	Timeout     time.Duration
	Mode        Mode
}

// DefaultOptions returns safe detection on every registered transport
func DefaultOptions() Options {
	return Options{
		Timeout: 5 * time.Second,
		Mode:    Safe,
	}
}

// Detector finds readers on one kind of bus
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no ST25R devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
)

var (
	detectorsMu sync.RWMutex
	detectors   = make(map[string]Detector)
)

// RegisterDetector makes a detector available to DetectAll. A later
// registration for the same transport replaces the earlier one.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors[d.Transport()] = d
}

// Transports returns the registered transport names in sorted order
func Transports() []string {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()

	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector, or only those named in
// opts.Transports. Results are ordered by confidence, highest first.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var devices []DeviceInfo
	for _, name := range Transports() {
		if !wanted(name, opts.Transports) {
			continue
		}
		if ctx.Err() != nil {
			return devices, ErrDetectionTimeout
		}

		detectorsMu.RLock()
		d := detectors[name]
		detectorsMu.RUnlock()

		found, err := d.Detect(ctx, opts)
		if err != nil {
			// A missing bus type is not an error for the whole run
			continue
		}
		for _, dev := range found {
			if !IsPathIgnored(dev.Path, opts.IgnorePaths) {
				devices = append(devices, dev)
			}
		}
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}

func wanted(name string, transports []string) bool {
	if len(transports) == 0 {
		return true
	}
	for _, t := range transports {
		if t == name {
			return true
		}
	}
	return false
}

// Classify rates a probe result. keep is false when the candidate should be
// dropped: in Safe mode only confirmed readers are kept.
func Classify(mode Mode, answered, known bool) (confidence Confidence, keep bool) {
	switch {
	case mode == Passive:
		return Low, true
	case known:
		return High, true
	case answered && mode == Full:
		return Medium, true
	default:
		return Low, false
	}
}
