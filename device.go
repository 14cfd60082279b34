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
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// FieldStatus combines the configured RF field settings with the last
// measured field strength
type FieldStatus struct {
	Enabled    bool
	PowerLevel int
	Strength   float64
}

// Stats are cumulative counters for a device
type Stats struct {
	Cycles          int64
	TransportErrors int64
	Arrivals        int64
	Removals        int64
	WritesSucceeded int64
	WritesFailed    int64
	Resets          int64
}

type deviceStats struct {
	cycles          atomic.Int64
	transportErrors atomic.Int64
	arrivals        atomic.Int64
	removals        atomic.Int64
	writesSucceeded atomic.Int64
	writesFailed    atomic.Int64
	resets          atomic.Int64
}

// Device drives one ST25R chip through its Transport. Each call to Tick runs
// one detection cycle. A Device exclusively owns its Transport and Registry.
type Device struct {
	transport   Transport
	config      *Config
	registry    *Registry
	tracker     *Tracker
	writer      *WriteSequencer
	present     map[string]string
	presence    PresenceState
	handlers    handlers
	stats       deviceStats
	failures    int
	strength    atomic.Uint64
	tickMu      sync.Mutex
	stateMu     sync.RWMutex
	initialized atomic.Bool
	operational atomic.Bool
	closed      atomic.Bool
}

// New creates a device on top of transport. The chip is not touched until
// Init is called.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	device := &Device{
		transport: transport,
		config:    DefaultConfig(),
		registry:  NewRegistry(),
		present:   make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	device.tracker = NewTracker(device.registry, device.config.DebounceCount)
	device.writer = NewWriteSequencer(
		device.config.WriteBlockSize,
		byte(device.config.WriteStartBlock),
		device.config.MaxBlockAttempts,
	)
	return device, nil
}

// NewFromConfig creates a device configured from cfg, including its tag
// registrations
func NewFromConfig(transport Transport, cfg *Config) (*Device, error) {
	return New(transport, WithConfig(cfg))
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Registry returns the tag registry
func (d *Device) Registry() *Registry {
	return d.registry
}

// Config returns a copy of the device configuration
func (d *Device) Config() *Config {
	return d.config.Clone()
}

// Init resets the chip, applies the power level and field setting
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext is Init with a context
func (d *Device) InitContext(ctx context.Context) error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	if d.closed.Load() {
		return ErrDeviceClosed
	}

	if err := d.setupChip(ctx); err != nil {
		d.operational.Store(false)
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if identifier, ok := d.transport.(ChipIdentifier); ok {
		if info, err := identifier.ChipIdentity(ctx); err == nil {
			debugf("chip %s identity=0x%02X revision=%d", info.Model, info.Identity, info.Revision)
		}
	}
	debugf("initialized on %s: power=%d field=%v debounce=%d tags=%d",
		d.transport.Type(), d.config.PowerLevel, d.config.RFFieldEnabled,
		d.config.DebounceCount, d.registry.Len())

	d.failures = 0
	d.initialized.Store(true)
	d.operational.Store(true)
	return nil
}

func (d *Device) setupChip(ctx context.Context) error {
	if err := d.transport.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	if err := d.transport.SetPower(ctx, d.config.PowerLevel); err != nil {
		return fmt.Errorf("set power failed: %w", err)
	}
	if switcher, ok := d.transport.(FieldSwitcher); ok {
		if err := switcher.SetFieldEnabled(ctx, d.config.RFFieldEnabled); err != nil {
			return fmt.Errorf("set RF field failed: %w", err)
		}
	}
	return nil
}

// Tick runs exactly one cycle: measure field strength, query tag presence,
// update the presence state machine, advance a pending write by one block and
// emit the resulting events in order. Transport failures are absorbed into
// the cycle; Tick only returns an error when ctx is done or the device is not
// usable. Tick must not be called from an event handler.
func (d *Device) Tick(ctx context.Context) error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	if d.closed.Load() {
		return ErrDeviceClosed
	}
	if !d.initialized.Load() {
		return ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tick cancelled: %w", err)
	}

	d.stats.cycles.Add(1)

	strength, strengthErr := d.transport.ReadFieldStrength(ctx)
	presence, presenceErr := d.transport.ReadFieldPresence(ctx)
	events := d.tracker.Observe(presence, presenceErr)
	result := d.writer.Step(ctx, d.transport)

	if strengthErr != nil {
		debugf("field strength read failed: %v", strengthErr)
	} else {
		d.strength.Store(math.Float64bits(strength))
	}

	d.accountFailures(ctx, presenceErr)
	d.applyEvents(events)

	for _, ev := range events {
		d.handlers.emitTag(ev)
	}
	if result != nil {
		if result.Success() {
			d.stats.writesSucceeded.Add(1)
		} else {
			d.stats.writesFailed.Add(1)
		}
		d.handlers.emitWrite(*result)
	}
	return nil
}

func (d *Device) accountFailures(ctx context.Context, err error) {
	if err == nil {
		d.failures = 0
		d.operational.Store(true)
		return
	}

	d.stats.transportErrors.Add(1)
	d.failures++
	if d.failures < d.config.MaxFailedChecks {
		return
	}

	d.operational.Store(false)
	if !d.config.AutoReset {
		return
	}

	debugf("resetting chip after %d consecutive failures, last: %v", d.failures, err)
	d.failures = 0
	d.stats.resets.Add(1)
	if resetErr := d.setupChip(ctx); resetErr != nil {
		debugf("automatic reset failed: %v", resetErr)
	}
}

func (d *Device) applyEvents(events []TagEvent) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	d.presence = d.tracker.State()
	for _, ev := range events {
		switch ev.Kind {
		case EventArrival:
			d.stats.arrivals.Add(1)
		case EventRemoval:
			d.stats.removals.Add(1)
		}
		if ev.Identity == nil {
			continue
		}
		if ev.Kind == EventArrival {
			d.present[ev.UID.key()] = ev.Identity.Name
		} else {
			delete(d.present, ev.UID.key())
		}
	}
}

// OnTagArrival registers a handler called for every tag entering the field,
// registered or not. Handlers run in registration order.
func (d *Device) OnTagArrival(fn TagHandler) {
	d.handlers.addArrival(fn)
}

// OnTagRemoved registers a handler called when a tag has left the field
func (d *Device) OnTagRemoved(fn TagHandler) {
	d.handlers.addRemoval(fn)
}

// OnFinishedWrite registers a handler called once per finished write job
func (d *Device) OnFinishedWrite(fn WriteHandler) {
	d.handlers.addFinished(fn)
}

// RequestWrite queues payload to be written to the tag starting at the
// configured start block. It returns ErrBusy while a previous write has not
// finished.
func (d *Device) RequestWrite(payload []byte) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	return d.writer.Request(payload)
}

func (d *Device) requestWriteAt(block byte, payload []byte) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	return d.writer.RequestAt(block, payload)
}

// IsWriting reports whether a write is requested or in progress
func (d *Device) IsWriting() bool {
	return d.writer.IsWriting()
}

// LastWriteResult returns the most recent finished write
func (d *Device) LastWriteResult() (WriteResult, bool) {
	return d.writer.LastResult()
}

// FieldStrength returns the last successfully measured field strength
func (d *Device) FieldStrength() float64 {
	return math.Float64frombits(d.strength.Load())
}

// FieldStatus returns the configured field settings with the last strength
func (d *Device) FieldStatus() FieldStatus {
	return FieldStatus{
		Enabled:    d.config.RFFieldEnabled,
		PowerLevel: d.config.PowerLevel,
		Strength:   d.FieldStrength(),
	}
}

// Status reports whether the chip is initialized and answering
func (d *Device) Status() bool {
	return d.initialized.Load() && d.operational.Load() && !d.closed.Load()
}

// IsTagPresent reports whether a registered tag called name is in the
// field. Several UIDs may share a name; any of them counts.
func (d *Device) IsTagPresent(name string) bool {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	for _, present := range d.present {
		if present == name {
			return true
		}
	}
	return false
}

// PresenceState returns the presence state as of the last cycle
func (d *Device) PresenceState() PresenceState {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	s := d.presence
	s.UID = NewUID(s.UID)
	return s
}

// Stats returns a snapshot of the device counters
func (d *Device) Stats() Stats {
	return Stats{
		Cycles:          d.stats.cycles.Load(),
		TransportErrors: d.stats.transportErrors.Load(),
		Arrivals:        d.stats.arrivals.Load(),
		Removals:        d.stats.removals.Load(),
		WritesSucceeded: d.stats.writesSucceeded.Load(),
		WritesFailed:    d.stats.writesFailed.Load(),
		Resets:          d.stats.resets.Load(),
	}
}

// Close emits a removal for a tag still in the field and closes the
// transport
func (d *Device) Close() error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	events := d.tracker.Reset()
	d.applyEvents(events)
	for _, ev := range events {
		d.handlers.emitTag(ev)
	}

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
