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
	"fmt"
	"time"
)

// Config controls how often the scanner ticks the device
type Config struct {
	// PollInterval is the tick period. Zero uses the device configuration.
	PollInterval time.Duration
	// IdleInterval replaces PollInterval once no tag was seen for IdleAfter.
	// Zero IdleAfter keeps the scanner at PollInterval.
	IdleInterval time.Duration
	IdleAfter    time.Duration
	// MaxBackoff caps the interval while the device reports a failure
	MaxBackoff time.Duration
	// IRQWaitTimeout bounds a single wait on the interrupt line
	IRQWaitTimeout time.Duration
}

// DefaultConfig returns sensible default configuration values
func DefaultConfig() *Config {
	return &Config{
		MaxBackoff:     10 * time.Second,
		IRQWaitTimeout: 100 * time.Millisecond,
	}
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	switch {
	case c.PollInterval < 0:
		return fmt.Errorf("poll interval must not be negative: %v", c.PollInterval)
	case c.IdleAfter < 0:
		return fmt.Errorf("idle delay must not be negative: %v", c.IdleAfter)
	case c.IdleAfter > 0 && c.IdleInterval <= 0:
		return fmt.Errorf("idle interval must be positive when idle delay is set: %v", c.IdleInterval)
	case c.MaxBackoff < 0:
		return fmt.Errorf("max backoff must not be negative: %v", c.MaxBackoff)
	case c.IRQWaitTimeout <= 0:
		return fmt.Errorf("IRQ wait timeout must be positive: %v", c.IRQWaitTimeout)
	}
	return nil
}
