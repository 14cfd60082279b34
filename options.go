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

package st25r

// Option configures a Device at construction time
type Option func(*Device) error

// WithConfig replaces the whole configuration. The tag list is registered
// into the device registry.
func WithConfig(config *Config) Option {
	return func(d *Device) error {
		if config == nil {
			return &ConfigError{Field: "config", Value: nil, Err: ErrInvalidConfig}
		}
		if err := config.Validate(); err != nil {
			return err
		}
		registry, err := config.BuildRegistry()
		if err != nil {
			return err
		}
		d.config = config.Clone()
		d.registry = registry
		return nil
	}
}

// WithRegistry uses an already populated registry
func WithRegistry(registry *Registry) Option {
	return func(d *Device) error {
		if registry == nil {
			return &ConfigError{Field: "registry", Value: nil, Err: ErrInvalidConfig}
		}
		d.registry = registry
		return nil
	}
}

// WithTag registers a single tag by its hyphenated UID
func WithTag(uid, name string) Option {
	return func(d *Device) error {
		_, err := d.registry.RegisterString(uid, name)
		return err
	}
}

// WithDebounce sets the number of consecutive misses before a removal
func WithDebounce(count int) Option {
	return func(d *Device) error {
		if count < 1 {
			return &ConfigError{Field: "debounce_count", Value: count, Err: ErrInvalidConfig}
		}
		d.config.DebounceCount = count
		return nil
	}
}

// WithPowerLevel sets the RF power level applied during Init
func WithPowerLevel(level int) Option {
	return func(d *Device) error {
		if err := ValidatePowerLevel(level); err != nil {
			return err
		}
		d.config.PowerLevel = level
		return nil
	}
}

// WithRFField sets whether the RF field is switched on during Init
func WithRFField(enabled bool) Option {
	return func(d *Device) error {
		d.config.RFFieldEnabled = enabled
		return nil
	}
}

// WithWriteBlocks sets the write block size, first block and attempts per
// block
func WithWriteBlocks(blockSize, startBlock, maxAttempts int) Option {
	return func(d *Device) error {
		d.config.WriteBlockSize = blockSize
		d.config.WriteStartBlock = startBlock
		d.config.MaxBlockAttempts = maxAttempts
		return d.config.Validate()
	}
}

// WithMaxFailedChecks sets how many consecutive transport failures mark the
// chip as not operational
func WithMaxFailedChecks(n int) Option {
	return func(d *Device) error {
		if n < 1 {
			return &ConfigError{Field: "max_failed_checks", Value: n, Err: ErrInvalidConfig}
		}
		d.config.MaxFailedChecks = n
		return nil
	}
}

// WithAutoReset sets whether the chip is reset after MaxFailedChecks
// consecutive failures
func WithAutoReset(enabled bool) Option {
	return func(d *Device) error {
		d.config.AutoReset = enabled
		return nil
	}
}
