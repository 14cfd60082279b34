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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	// Import detection packages to register detectors
	_ "github.com/ZaparooProject/go-st25r/detection/i2c"
	_ "github.com/ZaparooProject/go-st25r/detection/spi"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func parseDetectMode(s string) (detection.Mode, error) {
	switch strings.ToLower(s) {
	case "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return detection.Safe, fmt.Errorf("unknown detection mode %q", s)
	}
}

func run() int {
	quick := flag.Bool("quick", false, "Quick mode - only check that readers initialize")
	monitor := flag.Bool("monitor", false, "Monitor mode - continuous polling with reader hotplug")
	configPath := flag.String("config", "", "YAML device configuration (pins, power, tags)")
	detectMode := flag.String("detect", "safe", "Detection mode: passive, safe or full")
	ignore := flag.String("ignore", "", "Comma separated device paths or patterns to skip")
	connectTimeoutFlag := flag.Duration("connect-timeout", 10*time.Second, "Reader connection timeout")
	detectTimeoutFlag := flag.Duration("detect-timeout", 30*time.Second, "Tag detection timeout")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output")
	debugFlag := flag.Bool("debug", false, "Enable debug output")

	flag.Parse()

	output := NewOutput(*verboseFlag)
	config := DefaultConfig()

	switch {
	case *quick:
		config.Mode = ModeQuick
	case *monitor:
		config.Mode = ModeMonitor
	default:
		config.Mode = ModeComprehensive
	}

	mode, err := parseDetectMode(*detectMode)
	if err != nil {
		output.Error("%v", err)
		return 1
	}
	config.DetectMode = mode
	config.ConnectTimeout = *connectTimeoutFlag
	config.DetectTimeout = *detectTimeoutFlag
	config.Verbose = *verboseFlag
	if *ignore != "" {
		config.IgnorePaths = strings.Split(*ignore, ",")
	}
	if *configPath != "" {
		device, err := st25r.LoadConfig(*configPath)
		if err != nil {
			output.Error("%v", err)
			return 1
		}
		config.Device = device
		config.PollInterval = device.PollInterval
	}
	if *debugFlag {
		st25r.SetDebugEnabled(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discovery := NewDiscovery(config, output)
	testing := NewTesting(config, output, discovery)

	if config.Mode == ModeMonitor {
		if err := NewMonitoring(config, output, discovery, testing).Run(ctx); err != nil {
			output.Error("%v", err)
			return 1
		}
		return 0
	}

	readers, err := discovery.DiscoverReaders(ctx)
	if err != nil {
		output.Error("%v", err)
		return 1
	}

	failures := 0
	for _, reader := range readers {
		err := testing.TestReader(ctx, reader, config.Mode == ModeComprehensive)
		switch {
		case err == nil:
		case errors.Is(err, errNoTagDetected):
			output.Warning("%s: %v", reader.Path, err)
		default:
			output.Error("%s: %v", reader.Path, err)
			failures++
		}
		if ctx.Err() != nil {
			break
		}
	}

	if failures > 0 {
		return 1
	}
	return 0
}
