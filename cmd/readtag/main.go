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
	"syscall"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-st25r/detection/i2c"
	_ "github.com/ZaparooProject/go-st25r/detection/spi"
	"github.com/ZaparooProject/go-st25r/internal/connect"
	"github.com/ZaparooProject/go-st25r/polling"
	"github.com/hsanjuan/go-ndef"
)

type config struct {
	configPath   *string
	transport    *string
	devicePath   *string
	irqPin       *string
	resetPin     *string
	writeText    *string
	timeout      *time.Duration
	pollInterval *time.Duration
	debug        *bool
}

func parseFlags() *config {
	cfg := &config{
		configPath: flag.String("config", "", "YAML configuration file"),
		transport:  flag.String("transport", "", "Transport type (spi or i2c). Inferred from the path when empty."),
		devicePath: flag.String("device", "",
			"Device path (e.g., /dev/spidev0.0 or /dev/i2c-1:0x50). Leave empty for auto-detection."),
		irqPin:    flag.String("irq-pin", "", "GPIO name of the chip IRQ output"),
		resetPin:  flag.String("reset-pin", "", "GPIO name of the chip reset input"),
		writeText: flag.String("write", "", "Text to write to the next tag (if not specified, will only read)"),
		timeout:   flag.Duration("timeout", 0, "Stop after this long (default: run until interrupted)"),
		pollInterval: flag.Duration("poll-interval", 0,
			"Polling interval for tag detection (default: from config)"),
		debug: flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		st25r.SetDebugEnabled(true)
	}
	return cfg
}

// loadDeviceConfig merges the configuration file and the flags. Flags win.
func loadDeviceConfig(cfg *config) (*st25r.Config, error) {
	deviceCfg := st25r.DefaultConfig()
	if *cfg.configPath != "" {
		loaded, err := st25r.LoadConfig(*cfg.configPath)
		if err != nil {
			return nil, err
		}
		deviceCfg = loaded
	}

	if *cfg.transport != "" {
		deviceCfg.Transport.Type = st25r.TransportType(*cfg.transport)
	}
	if *cfg.devicePath != "" {
		deviceCfg.Transport.Path = *cfg.devicePath
	}
	if *cfg.irqPin != "" {
		deviceCfg.IRQPin = *cfg.irqPin
	}
	if *cfg.resetPin != "" {
		deviceCfg.ResetPin = *cfg.resetPin
	}
	if *cfg.pollInterval > 0 {
		deviceCfg.PollInterval = *cfg.pollInterval
	}
	if err := deviceCfg.Validate(); err != nil {
		return nil, err
	}
	return deviceCfg, nil
}

// openTransport opens the configured device, or the best detected one when
// no path is set
func openTransport(ctx context.Context, deviceCfg *st25r.Config) (*connect.Opened, error) {
	if deviceCfg.Transport.Path != "" {
		_, _ = fmt.Printf("Opening device: %s\n", deviceCfg.Transport.Path)
		return connect.FromConfig(deviceCfg)
	}

	_, _ = fmt.Println("Auto-detecting ST25R devices...")
	opts := detection.DefaultOptions()
	if deviceCfg.Transport.Type != "" {
		opts.Transports = []string{string(deviceCfg.Transport.Type)}
	}
	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("auto-detection failed: %w", err)
	}

	var lastErr error
	for _, device := range devices {
		opened, err := connect.FromDevice(device, deviceCfg)
		if err == nil {
			_, _ = fmt.Printf("Using %s\n", device.Name)
			return opened, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no detected device could be opened: %w", lastErr)
}

func printTagEvent(event st25r.TagEvent) {
	name := "unregistered"
	if event.Identity != nil {
		name = event.Identity.Name
	}
	_, _ = fmt.Printf("[%s] %s: %s (%s)\n", event.At.Format(time.TimeOnly), event.Kind, event.UIDString(), name)
}

func printDeviceInfo(device *st25r.Device) {
	if identifier, ok := device.Transport().(st25r.ChipIdentifier); ok {
		if info, err := identifier.ChipIdentity(context.Background()); err == nil {
			_, _ = fmt.Printf("Chip: %s (revision %d)\n", info.Model, info.Revision)
		}
	}
	status := device.FieldStatus()
	_, _ = fmt.Printf("RF field: enabled=%t power=%d strength=%.2f\n", status.Enabled, status.PowerLevel, status.Strength)
	for _, identity := range device.Registry().Identities() {
		_, _ = fmt.Printf("Registered tag: %s = %s\n", identity.Name, identity.UID)
	}
}

func handleWriteMode(ctx context.Context, scanner *polling.Scanner, timeout time.Duration, text string) error {
	payload, err := st25r.EncodeNDEF(ndef.NewTextMessage(text, "en"))
	if err != nil {
		return fmt.Errorf("failed to encode text: %w", err)
	}

	_, _ = fmt.Println("Waiting for tag to write...")
	result, err := scanner.WriteToNextTag(ctx, timeout, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			_, _ = fmt.Printf("timeout: no tag detected within %s\n", timeout)
			return nil
		}
		return fmt.Errorf("write operation failed: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("write failed after %d of %d blocks: %w",
			result.BlocksWritten, result.TotalBlocks, result.Err)
	}

	_, _ = fmt.Printf("Write successful! %d blocks from block %d\n", result.BlocksWritten, result.StartBlock)
	return nil
}

func run() error {
	cfg := parseFlags()
	deviceCfg, err := loadDeviceConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *cfg.timeout)
		defer cancel()
	}

	opened, err := openTransport(ctx, deviceCfg)
	if err != nil {
		return err
	}
	defer func() { _ = opened.ReleasePins() }()

	device, err := st25r.NewFromConfig(opened.Transport, deviceCfg)
	if err != nil {
		_ = opened.Transport.Close()
		return fmt.Errorf("failed to create device: %w", err)
	}
	defer func() { _ = device.Close() }()

	if err := device.InitContext(ctx); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	printDeviceInfo(device)

	device.OnTagArrival(printTagEvent)
	device.OnTagRemoved(printTagEvent)

	scanner, err := polling.NewScanner(device, polling.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	if err := scanner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scanner: %w", err)
	}
	defer func() { _ = scanner.Stop() }()

	if *cfg.writeText != "" {
		writeTimeout := *cfg.timeout
		if writeTimeout <= 0 {
			writeTimeout = 30 * time.Second
		}
		return handleWriteMode(ctx, scanner, writeTimeout, *cfg.writeText)
	}

	_, _ = fmt.Println("Waiting for NFC tags, press Ctrl+C to stop...")
	<-ctx.Done()

	metrics := scanner.GetMetrics()
	_, _ = fmt.Printf("\n%d poll cycles, %d errors, %d tags detected\n",
		metrics.PollCycles, metrics.PollErrors, metrics.TagsDetected)
	return nil
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
