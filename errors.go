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
	"errors"
	"fmt"
)

// Configuration errors. These are only returned while setting up a device.
var (
	ErrDuplicateUID         = errors.New("duplicate UID registration")
	ErrInvalidUID           = errors.New("invalid UID")
	ErrPowerLevelOutOfRange = errors.New("power level out of range")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// Transport errors. The core treats all of them as a failed read for the
// current cycle.
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrNoResponse       = errors.New("no response from tag")
	ErrPartialUID       = errors.New("incomplete UID read")
	ErrChipNotFound     = errors.New("ST25R chip not responding")
	ErrWriteNAK         = errors.New("tag rejected write")
)

// Runtime errors returned synchronously to the host.
var (
	ErrBusy            = errors.New("write already in progress")
	ErrEmptyPayload    = errors.New("write payload is empty")
	ErrPayloadTooLarge = errors.New("write payload runs past the last block")
	ErrDeviceClosed    = errors.New("device is closed")
	ErrNotInitialized  = errors.New("device is not initialized")
)

// ErrorType classifies transport errors
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by trying again
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on the next cycle
	ErrorTypeTransient
	// ErrorTypeTimeout errors are bus or tag timeouts
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps a failure from a bus exchange with the operation and
// port it happened on.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error. Transient and timeout errors
// are marked retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewNoResponseError is returned when the tag did not answer a frame
func NewNoResponseError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoResponse, ErrorTypeTransient)
}

// IsRetryable reports whether err is worth retrying on a later cycle
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrNoResponse),
		errors.Is(err, ErrPartialUID):
		return true
	default:
		return false
	}
}

// GetErrorType returns the ErrorType for err
func GetErrorType(err error) ErrorType {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case IsRetryable(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// ConfigError reports an invalid setup value. It is fatal to setup only.
type ConfigError struct {
	Err   error
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// WriteError is the failure carried by a finished write once a block could
// not be written after all attempts.
type WriteError struct {
	Err      error
	Block    byte
	Attempts int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write block %d failed after %d attempts: %v", e.Block, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
