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
	"fmt"
	"sync"
	"time"
)

// WriteState is the state of the write sequencer
type WriteState int

const (
	// WriteIdle means no job is outstanding
	WriteIdle WriteState = iota
	// WriteRequested means a job was accepted and starts on the next cycle
	WriteRequested
	// WriteInProgress means blocks are being written
	WriteInProgress
	// WriteSucceeded means every block was confirmed written
	WriteSucceeded
	// WriteFailed means a block could not be written
	WriteFailed
)

func (s WriteState) String() string {
	switch s {
	case WriteIdle:
		return "idle"
	case WriteRequested:
		return "requested"
	case WriteInProgress:
		return "in_progress"
	case WriteSucceeded:
		return "succeeded"
	case WriteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WriteResult is delivered to finished-write handlers
type WriteResult struct {
	Err           error
	FinishedAt    time.Time
	BlocksWritten int
	TotalBlocks   int
	StartBlock    byte
}

// Success reports whether every block was written
func (r WriteResult) Success() bool {
	return r.Err == nil
}

type writeJob struct {
	blocks   [][]byte
	start    byte
	next     int
	attempts int
}

// WriteSequencer drives a block-by-block write, one block per cycle. Request
// may be called from any goroutine; Step is called by the device once per
// tick.
type WriteSequencer struct {
	job         *writeJob
	lastResult  *WriteResult
	blockSize   int
	startBlock  byte
	maxAttempts int
	state       WriteState
	mu          sync.Mutex
}

// NewWriteSequencer creates a sequencer splitting payloads into blockSize
// chunks starting at startBlock. A block failing with a retryable error is
// attempted at most maxAttempts times; any other error fails the job at once.
func NewWriteSequencer(blockSize int, startBlock byte, maxAttempts int) *WriteSequencer {
	if blockSize < 1 {
		blockSize = DefaultWriteBlockSize
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &WriteSequencer{
		blockSize:   blockSize,
		startBlock:  startBlock,
		maxAttempts: maxAttempts,
	}
}

// Request queues payload for writing at the configured start block. It fails
// with ErrBusy while another job is requested or in progress.
func (w *WriteSequencer) Request(payload []byte) error {
	return w.RequestAt(w.startBlock, payload)
}

// RequestAt is like Request but writes starting at block start. Payloads
// that would run past block 0xFF fail with ErrPayloadTooLarge.
func (w *WriteSequencer) RequestAt(start byte, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == WriteRequested || w.state == WriteInProgress {
		return ErrBusy
	}

	blocks := splitBlocks(payload, w.blockSize)
	// Block addresses are a single byte on the wire
	if int(start)+len(blocks)-1 > 0xFF {
		return fmt.Errorf("%w: %d blocks from block %d", ErrPayloadTooLarge, len(blocks), start)
	}

	w.job = &writeJob{
		blocks: blocks,
		start:  start,
	}
	w.state = WriteRequested
	debugf("write requested: %d bytes in %d blocks from block %d", len(payload), len(w.job.blocks), start)
	return nil
}

// IsWriting reports whether a job is requested or in progress
func (w *WriteSequencer) IsWriting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == WriteRequested || w.state == WriteInProgress
}

// State returns the current state
func (w *WriteSequencer) State() WriteState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastResult returns the result of the most recent finished job
func (w *WriteSequencer) LastResult() (WriteResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastResult == nil {
		return WriteResult{}, false
	}
	return *w.lastResult, true
}

// Step performs at most one block exchange. It returns a result exactly once
// per job, on the step that reaches a terminal state; the sequencer is Idle
// again when Step returns that result.
func (w *WriteSequencer) Step(ctx context.Context, transport Transport) *WriteResult {
	w.mu.Lock()
	if w.job == nil || (w.state != WriteRequested && w.state != WriteInProgress) {
		w.mu.Unlock()
		return nil
	}
	if w.state == WriteRequested {
		w.state = WriteInProgress
	}
	job := w.job
	w.mu.Unlock()

	// Request cannot replace the job while it is in progress, so the
	// exchange runs without holding the lock.
	address := job.start + byte(job.next)
	err := transport.WriteBlock(ctx, address, job.blocks[job.next])

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		job.attempts++
		debugf("write block %d attempt %d/%d failed: %v", address, job.attempts, w.maxAttempts, err)
		// A rejected block fails the job at once
		if IsRetryable(err) && job.attempts < w.maxAttempts {
			return nil
		}
		w.state = WriteFailed
		return w.finish(job, &WriteError{Block: address, Attempts: job.attempts, Err: err})
	}

	job.next++
	job.attempts = 0
	if job.next < len(job.blocks) {
		return nil
	}
	w.state = WriteSucceeded
	return w.finish(job, nil)
}

func (w *WriteSequencer) finish(job *writeJob, err error) *WriteResult {
	result := &WriteResult{
		Err:           err,
		BlocksWritten: job.next,
		TotalBlocks:   len(job.blocks),
		StartBlock:    job.start,
		FinishedAt:    time.Now(),
	}
	debugf("write finished in state %s: %d/%d blocks", w.state, result.BlocksWritten, result.TotalBlocks)
	w.lastResult = result
	w.job = nil
	w.state = WriteIdle
	out := *result
	return &out
}

func splitBlocks(payload []byte, size int) [][]byte {
	n := (len(payload) + size - 1) / size
	blocks := make([][]byte, n)
	for i := range blocks {
		block := make([]byte, size)
		copy(block, payload[i*size:])
		blocks[i] = block
	}
	return blocks
}
