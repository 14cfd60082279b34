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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
)

// InterruptSource is the chip IRQ line. WaitForInterrupt returns true when
// the line is asserted, false after timeout.
type InterruptSource interface {
	WaitForInterrupt(timeout time.Duration) bool
}

// Scanner drives a Device: it calls Tick on a fixed interval and, when an
// interrupt source is wired, as soon as the IRQ line fires. Only the scanner
// goroutine calls Tick.
type Scanner struct {
	device       *st25r.Device
	config       *Config
	irq          InterruptSource
	pendingWrite atomic.Pointer[writeRequest]
	cancelFunc   context.CancelFunc
	done         chan struct{}
	metrics      metrics
	interval     atomic.Int64
	mode         atomic.Int32
	writeMutex   sync.Mutex
	stopMutex    sync.Mutex
	running      atomic.Bool
}

// Scanner-specific errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
	ErrScannerStopped      = errors.New("scanner was stopped")
)

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithInterruptSource ticks the device whenever irq fires, in addition to
// the periodic ticks
func WithInterruptSource(irq InterruptSource) ScannerOption {
	return func(s *Scanner) {
		s.irq = irq
	}
}

// NewScanner creates a new scanner for an initialized device
func NewScanner(device *st25r.Device, config *Config, opts ...ScannerOption) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scanner configuration: %w", err)
	}

	s := &Scanner{
		device: device,
		config: config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.interval.Store(int64(s.baseInterval()))

	device.OnTagArrival(func(st25r.TagEvent) {
		s.metrics.tagsDetected.Add(1)
	})
	device.OnFinishedWrite(s.finishWrite)
	return s, nil
}

// baseInterval is the configured poll interval, falling back to the device
// configuration
func (s *Scanner) baseInterval() time.Duration {
	if s.config.PollInterval > 0 {
		return s.config.PollInterval
	}
	if interval := s.device.Config().PollInterval; interval > 0 {
		return interval
	}
	return st25r.DefaultPollInterval
}

// Start begins continuous scanning (non-blocking)
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scanner is already running")
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	if s.cancelFunc != nil {
		// Left over from a loop that exited on its own
		s.cancelFunc()
	}
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	go func() {
		defer func() {
			cancel()
			s.failPendingWrite(ErrScannerStopped)
			s.running.Store(false)
			close(done)
		}()

		if err := s.run(scanCtx); err != nil && !errors.Is(err, context.Canceled) {
			st25r.Debugf("scanner stopped: %v", err)
		}
	}()

	return nil
}

// Stop cancels the scan loop and blocks until it has exited
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	done := s.done
	s.cancelFunc = nil
	s.stopMutex.Unlock()

	if cancelFunc == nil {
		return nil
	}
	cancelFunc()
	<-done
	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns current operational metrics
func (s *Scanner) GetMetrics() Metrics {
	return s.metrics.snapshot()
}

// GetCurrentPollInterval returns the delay the scanner currently waits
// between periodic ticks
func (s *Scanner) GetCurrentPollInterval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Mode returns the current scheduling mode
func (s *Scanner) Mode() Mode {
	return Mode(s.mode.Load())
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}
