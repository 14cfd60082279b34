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
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
)

// Mode is the operating mode of the tool
type Mode int

const (
	// ModeComprehensive tests every reader and waits for a tag on each
	ModeComprehensive Mode = iota
	// ModeQuick only checks that every reader initializes
	ModeQuick
	// ModeMonitor keeps polling all readers and reports tags and hotplug
	ModeMonitor
)

// Config holds application configuration
type Config struct {
	Device         *st25r.Config
	IgnorePaths    []string
	Mode           Mode
	DetectMode     detection.Mode
	ConnectTimeout time.Duration
	DetectTimeout  time.Duration
	PollInterval   time.Duration
	RescanInterval time.Duration
	Verbose        bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	device := st25r.DefaultConfig()
	device.PollInterval = 50 * time.Millisecond
	return &Config{
		Device:         device,
		Mode:           ModeComprehensive,
		DetectMode:     detection.Safe,
		ConnectTimeout: 10 * time.Second,
		DetectTimeout:  30 * time.Second,
		PollInterval:   50 * time.Millisecond,
		RescanInterval: 5 * time.Second,
	}
}
