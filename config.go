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

import (
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/go-st25r/internal/frame"
	"gopkg.in/yaml.v3"
)

// Power level bounds for the RF driver
const (
	MinPowerLevel = 0
	MaxPowerLevel = 15
)

// Defaults used when a configuration leaves a value unset
const (
	DefaultPollInterval     = time.Second
	DefaultPowerLevel       = MaxPowerLevel
	DefaultDebounceCount    = 2
	DefaultMaxFailedChecks  = 3
	DefaultWriteBlockSize   = 4
	DefaultWriteStartBlock  = 4
	DefaultMaxBlockAttempts = 3
)

// TagConfig declares one registered tag
type TagConfig struct {
	Name string `yaml:"name"`
	UID  string `yaml:"uid"`
}

// TransportConfig selects the bus the chip is attached to. It is consumed by
// the command line tools; the core only sees the resulting Transport.
type TransportConfig struct {
	Type    TransportType `yaml:"type"`
	Path    string        `yaml:"path"`
	Address uint16        `yaml:"address"`
	SpeedHz int64         `yaml:"speed_hz"`
}

// Config is the setup-time configuration of a device. It is immutable once
// the device has been created.
type Config struct {
	Transport        TransportConfig `yaml:"transport"`
	IRQPin           string          `yaml:"irq_pin"`
	ResetPin         string          `yaml:"reset_pin"`
	Tags             []TagConfig     `yaml:"tags"`
	PollInterval     time.Duration   `yaml:"poll_interval"`
	PowerLevel       int             `yaml:"power_level"`
	DebounceCount    int             `yaml:"debounce_count"`
	MaxFailedChecks  int             `yaml:"max_failed_checks"`
	// WriteBlockSize is the number of payload bytes per WriteBlock call. The
	// SPI and I2C transports write Type 2 pages and only accept 4.
	WriteBlockSize   int             `yaml:"write_block_size"`
	WriteStartBlock  int             `yaml:"write_start_block"`
	MaxBlockAttempts int             `yaml:"max_block_attempts"`
	RFFieldEnabled   bool            `yaml:"rf_field_enabled"`
	AutoReset        bool            `yaml:"auto_reset"`
}

// DefaultConfig returns the configuration used when none is supplied
func DefaultConfig() *Config {
	return &Config{
		PollInterval:     DefaultPollInterval,
		PowerLevel:       DefaultPowerLevel,
		DebounceCount:    DefaultDebounceCount,
		MaxFailedChecks:  DefaultMaxFailedChecks,
		WriteBlockSize:   DefaultWriteBlockSize,
		WriteStartBlock:  DefaultWriteStartBlock,
		MaxBlockAttempts: DefaultMaxBlockAttempts,
		AutoReset:        true,
	}
}

// ParseConfig decodes a YAML configuration on top of DefaultConfig and
// validates it
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Field: "yaml", Value: len(data), Err: fmt.Errorf("%w: %w", ErrInvalidConfig, err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and the tag list. The first problem found is
// returned as a *ConfigError.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "poll_interval", Value: c.PollInterval, Err: ErrInvalidConfig}
	}
	if err := ValidatePowerLevel(c.PowerLevel); err != nil {
		return err
	}
	if c.DebounceCount < 1 {
		return &ConfigError{Field: "debounce_count", Value: c.DebounceCount, Err: ErrInvalidConfig}
	}
	if c.MaxFailedChecks < 1 {
		return &ConfigError{Field: "max_failed_checks", Value: c.MaxFailedChecks, Err: ErrInvalidConfig}
	}
	if c.WriteBlockSize < 1 || c.WriteBlockSize > 16 {
		return &ConfigError{Field: "write_block_size", Value: c.WriteBlockSize, Err: ErrInvalidConfig}
	}
	if c.WriteStartBlock < 0 || c.WriteStartBlock > 0xFF {
		return &ConfigError{Field: "write_start_block", Value: c.WriteStartBlock, Err: ErrInvalidConfig}
	}
	if c.MaxBlockAttempts < 1 {
		return &ConfigError{Field: "max_block_attempts", Value: c.MaxBlockAttempts, Err: ErrInvalidConfig}
	}
	switch c.Transport.Type {
	case "", TransportSPI, TransportI2C, TransportMock:
	default:
		return &ConfigError{Field: "transport.type", Value: c.Transport.Type, Err: ErrInvalidConfig}
	}
	if c.usesChipTransport() && c.WriteBlockSize != frame.T2TBlockSize {
		return &ConfigError{Field: "write_block_size", Value: c.WriteBlockSize, Err: ErrInvalidConfig}
	}
	_, err := c.BuildRegistry()
	return err
}

// usesChipTransport reports whether the configuration names an SPI or I2C
// bus, explicitly or through a device path
func (c *Config) usesChipTransport() bool {
	switch c.Transport.Type {
	case TransportSPI, TransportI2C:
		return true
	case "":
		return c.Transport.Path != ""
	default:
		return false
	}
}

// ValidatePowerLevel checks that level is within MinPowerLevel..MaxPowerLevel
func ValidatePowerLevel(level int) error {
	if level < MinPowerLevel || level > MaxPowerLevel {
		return &ConfigError{Field: "power_level", Value: level, Err: ErrPowerLevelOutOfRange}
	}
	return nil
}

// BuildRegistry creates a registry holding every declared tag
func (c *Config) BuildRegistry() (*Registry, error) {
	registry := NewRegistry()
	for i, tag := range c.Tags {
		if tag.Name == "" {
			return nil, &ConfigError{Field: fmt.Sprintf("tags[%d].name", i), Value: tag.Name, Err: ErrInvalidConfig}
		}
		if _, err := registry.RegisterString(tag.UID, tag.Name); err != nil {
			return nil, fmt.Errorf("tags[%d]: %w", i, err)
		}
	}
	return registry, nil
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	out := *c
	out.Tags = append([]TagConfig(nil), c.Tags...)
	return &out
}
