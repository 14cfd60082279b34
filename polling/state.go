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
	"time"
)

// Mode is the current scheduling mode of the scanner
type Mode int

const (
	// ModeActive ticks at the poll interval
	ModeActive Mode = iota
	// ModeIdle ticks at the idle interval after a quiet period
	ModeIdle
	// ModeBackoff doubles the interval while the device reports a failure
	ModeBackoff
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModeIdle:
		return "idle"
	case ModeBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// schedule picks the delay before the next tick
type schedule struct {
	lastSeen time.Time
	backoff  time.Duration
	mode     Mode
}

func newSchedule(now time.Time) *schedule {
	return &schedule{lastSeen: now}
}

// next returns the delay before the next tick given the outcome of the last
// one
func (s *schedule) next(cfg *Config, base time.Duration, now time.Time, present, operational bool) time.Duration {
	if !operational {
		s.mode = ModeBackoff
		if s.backoff < base {
			s.backoff = base
		}
		s.backoff *= 2
		if cfg.MaxBackoff > 0 && s.backoff > cfg.MaxBackoff {
			s.backoff = cfg.MaxBackoff
		}
		if s.backoff < base {
			s.backoff = base
		}
		return s.backoff
	}
	s.backoff = 0

	if present {
		s.lastSeen = now
	}
	if !present && cfg.IdleAfter > 0 && now.Sub(s.lastSeen) >= cfg.IdleAfter {
		s.mode = ModeIdle
		return cfg.IdleInterval
	}
	s.mode = ModeActive
	return base
}

// safeTimerStop safely stops a timer and drains its channel to prevent resource leaks
func safeTimerStop(timer *time.Timer) {
	if timer != nil {
		// If Stop() returned false, the timer already fired and the value was sent to C
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}
