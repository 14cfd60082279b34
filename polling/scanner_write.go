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
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
)

// writeRequest is a payload waiting for the next tag. started is only
// touched by the scanner goroutine.
type writeRequest struct {
	ctx       context.Context
	result    chan st25r.WriteResult
	payload   []byte
	createdAt time.Time
	started   bool
}

// WriteToNextTag waits until a tag is in the field, writes payload to it
// through the device write sequencer and returns the finished-write result.
// It blocks until the write completes, times out, or is cancelled.
func (s *Scanner) WriteToNextTag(ctx context.Context, timeout time.Duration, payload []byte) (st25r.WriteResult, error) {
	if !s.running.Load() {
		return st25r.WriteResult{}, ErrScannerNotRunning
	}
	if len(payload) == 0 {
		return st25r.WriteResult{}, st25r.ErrEmptyPayload
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &writeRequest{
		ctx:       writeCtx,
		result:    make(chan st25r.WriteResult, 1),
		payload:   append([]byte(nil), payload...),
		createdAt: time.Now(),
	}

	// Serialize the check so only one request is ever pending
	s.writeMutex.Lock()
	if s.pendingWrite.Load() != nil {
		s.writeMutex.Unlock()
		return st25r.WriteResult{}, ErrWriteAlreadyPending
	}
	s.pendingWrite.Store(req)
	s.writeMutex.Unlock()
	defer s.pendingWrite.CompareAndSwap(req, nil)

	select {
	case result := <-req.result:
		return result, result.Err
	case <-writeCtx.Done():
		return st25r.WriteResult{}, writeCtx.Err()
	}
}

// startPendingWrite hands the pending payload to the device once a tag is
// present. Called from the scan loop after every tick.
func (s *Scanner) startPendingWrite() {
	req := s.pendingWrite.Load()
	if req == nil || req.started {
		return
	}

	if err := req.ctx.Err(); err != nil {
		s.sendWriteResult(req, st25r.WriteResult{Err: err, FinishedAt: time.Now()})
		return
	}
	if !s.device.PresenceState().Present {
		return
	}

	if err := s.device.RequestWrite(req.payload); err != nil {
		s.sendWriteResult(req, st25r.WriteResult{Err: err, FinishedAt: time.Now()})
		return
	}
	req.started = true
	st25r.Debugf("write of %d bytes started after %v", len(req.payload), time.Since(req.createdAt))
}

// finishWrite is the device finished-write handler. It runs inside Tick on
// the scanner goroutine.
func (s *Scanner) finishWrite(result st25r.WriteResult) {
	req := s.pendingWrite.Load()
	if req == nil || !req.started {
		return
	}
	s.sendWriteResult(req, result)
}

func (s *Scanner) failPendingWrite(err error) {
	if req := s.pendingWrite.Load(); req != nil {
		s.sendWriteResult(req, st25r.WriteResult{Err: err, FinishedAt: time.Now()})
	}
}

// sendWriteResult delivers the result once and clears the pending request
func (s *Scanner) sendWriteResult(req *writeRequest, result st25r.WriteResult) {
	if !s.pendingWrite.CompareAndSwap(req, nil) {
		return
	}
	select {
	case req.result <- result:
	default:
	}
}
