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
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for a Scanner
type Metrics struct {
	PollCycles      int64         // Total number of ticks run
	PollErrors      int64         // Ticks after which the device reported a failure
	TagsDetected    int64         // Arrival events seen by the scanner
	IRQWakeups      int64         // Ticks triggered by the interrupt line
	LastPollLatency time.Duration // Duration of the last tick
}

type metrics struct {
	pollCycles      atomic.Int64
	pollErrors      atomic.Int64
	tagsDetected    atomic.Int64
	irqWakeups      atomic.Int64
	lastPollLatency atomic.Int64 // in nanoseconds
}

func (m *metrics) snapshot() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		TagsDetected:    m.tagsDetected.Load(),
		IRQWakeups:      m.irqWakeups.Load(),
		LastPollLatency: time.Duration(m.lastPollLatency.Load()),
	}
}
