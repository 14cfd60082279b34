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
	"sync"
	"time"
)

// BlockWrite records one WriteBlock call on a MockTransport
type BlockWrite struct {
	Data    []byte
	Address byte
}

type presenceStep struct {
	err      error
	presence Presence
}

// MockTransport is a scripted Transport for tests. Presence reads are taken
// from a queue first and fall back to a fixed answer once the queue is empty.
type MockTransport struct {
	strengthErr   error
	resetErr      error
	powerErr      error
	fallback      presenceStep
	writeErrs     map[byte][]error
	queue         []presenceStep
	writes        []BlockWrite
	strength      float64
	powerLevel    int
	resets        int
	presenceCalls int
	mu            sync.Mutex
	fieldEnabled  bool
	closed        bool
}

// NewMockTransport creates a mock reporting no tag
func NewMockTransport() *MockTransport {
	return &MockTransport{
		writeErrs:  make(map[byte][]error),
		powerLevel: -1,
	}
}

// SetPresence sets the answer used once the queue is empty
func (m *MockTransport) SetPresence(p Presence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = presenceStep{presence: p}
}

// SetPresenceError makes presence reads fail once the queue is empty
func (m *MockTransport) SetPresenceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = presenceStep{err: err}
}

// QueuePresence appends answers consumed one per presence read
func (m *MockTransport) QueuePresence(ps ...Presence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.queue = append(m.queue, presenceStep{presence: p})
	}
}

// QueuePresenceError appends a failing presence read
func (m *MockTransport) QueuePresenceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, presenceStep{err: err})
}

// SetStrength sets the value returned by ReadFieldStrength
func (m *MockTransport) SetStrength(value float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strength = value
	m.strengthErr = err
}

// QueueWriteErrors makes the next WriteBlock calls for address fail with
// errs, one per call
func (m *MockTransport) QueueWriteErrors(address byte, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[address] = append(m.writeErrs[address], errs...)
}

// SetResetError makes Reset fail
func (m *MockTransport) SetResetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetErr = err
}

// SetPowerError makes SetPower fail
func (m *MockTransport) SetPowerError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerErr = err
}

// ReadFieldPresence implements Transport
func (m *MockTransport) ReadFieldPresence(_ context.Context) (Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presenceCalls++
	step := m.fallback
	if len(m.queue) > 0 {
		step = m.queue[0]
		m.queue = m.queue[1:]
	}
	if step.err != nil {
		return NoTag, step.err
	}
	return step.presence, nil
}

// ReadFieldStrength implements Transport
func (m *MockTransport) ReadFieldStrength(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strength, m.strengthErr
}

// WriteBlock implements Transport
func (m *MockTransport) WriteBlock(_ context.Context, address byte, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if errs := m.writeErrs[address]; len(errs) > 0 {
		m.writeErrs[address] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	m.writes = append(m.writes, BlockWrite{Address: address, Data: append([]byte(nil), data...)})
	return nil
}

// SetPower implements Transport
func (m *MockTransport) SetPower(_ context.Context, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.powerErr != nil {
		return m.powerErr
	}
	m.powerLevel = level
	return nil
}

// SetFieldEnabled implements FieldSwitcher
func (m *MockTransport) SetFieldEnabled(_ context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldEnabled = enabled
	return nil
}

// Reset implements Transport
func (m *MockTransport) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return m.resetErr
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Writes returns all successful block writes so far
func (m *MockTransport) Writes() []BlockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BlockWrite(nil), m.writes...)
}

// Resets returns how many times Reset was called
func (m *MockTransport) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// PowerLevel returns the last level passed to SetPower, or -1
func (m *MockTransport) PowerLevel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerLevel
}

// FieldEnabled returns the last value passed to SetFieldEnabled
func (m *MockTransport) FieldEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldEnabled
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// BlockingMockTransport blocks presence reads until Unblock is called. It is
// used to check that host queries never wait on a running cycle.
type BlockingMockTransport struct {
	*MockTransport
	blockChan chan struct{}
	entered   chan struct{}
	timeout   time.Duration
	bmu       sync.Mutex
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		MockTransport: NewMockTransport(),
		blockChan:     make(chan struct{}),
		entered:       make(chan struct{}, 1),
		timeout:       5 * time.Second,
	}
}

// ReadFieldPresence blocks until Unblock, the timeout, or ctx is done
func (m *BlockingMockTransport) ReadFieldPresence(ctx context.Context) (Presence, error) {
	m.bmu.Lock()
	blockChan := m.blockChan
	timeout := m.timeout
	m.bmu.Unlock()

	select {
	case m.entered <- struct{}{}:
	default:
	}

	select {
	case <-blockChan:
	case <-ctx.Done():
		return NoTag, NewTimeoutError("ReadFieldPresence", "mock")
	case <-time.After(timeout):
		return NoTag, NewTimeoutError("ReadFieldPresence", "mock")
	}
	return m.MockTransport.ReadFieldPresence(ctx)
}

// Entered is signalled each time a presence read starts blocking
func (m *BlockingMockTransport) Entered() <-chan struct{} {
	return m.entered
}

// Unblock releases the currently blocked presence read
func (m *BlockingMockTransport) Unblock() {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	close(m.blockChan)
	m.blockChan = make(chan struct{})
}
