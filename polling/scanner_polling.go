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
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
)

// run is the scan loop. The first tick happens immediately. The interrupt
// watcher has exited by the time run returns.
func (s *Scanner) run(ctx context.Context) error {
	var irq <-chan struct{}
	if s.irq != nil {
		watchCtx, stopWatch := context.WithCancel(ctx)
		watchDone := make(chan struct{})
		defer func() {
			stopWatch()
			<-watchDone
		}()

		ch := make(chan struct{})
		go func() {
			defer close(watchDone)
			s.watchInterrupts(watchCtx, ch)
		}()
		irq = ch
	}

	sched := newSchedule(time.Now())
	timer := time.NewTimer(0)
	defer safeTimerStop(timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-irq:
			s.metrics.irqWakeups.Add(1)
		}

		if err := s.tick(ctx); err != nil {
			return err
		}

		next := sched.next(s.config, s.baseInterval(), time.Now(),
			s.device.PresenceState().Present, s.device.Status())
		s.interval.Store(int64(next))
		s.mode.Store(int32(sched.mode))

		safeTimerStop(timer)
		timer.Reset(next)
	}
}

// tick runs one device cycle and hands a pending write to the device once a
// tag is present
func (s *Scanner) tick(ctx context.Context) error {
	start := time.Now()
	err := s.device.Tick(ctx)
	s.metrics.pollCycles.Add(1)
	s.metrics.lastPollLatency.Store(int64(time.Since(start)))

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, st25r.ErrDeviceClosed) || errors.Is(err, st25r.ErrNotInitialized) {
			return err
		}
		st25r.Debugf("tick failed: %v", err)
	}
	if !s.device.Status() {
		s.metrics.pollErrors.Add(1)
	}

	s.startPendingWrite()
	return nil
}

// watchInterrupts only signals; the scan loop alone calls Tick. A send
// blocks until the loop picks it up, so a line held high between ticks
// wakes the loop once per tick.
func (s *Scanner) watchInterrupts(ctx context.Context, ch chan<- struct{}) {
	for ctx.Err() == nil {
		if !s.irq.WaitForInterrupt(s.config.IRQWaitTimeout) {
			continue
		}
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}
