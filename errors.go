// momoaudio
// Copyright (c) 2026 The momoaudio Authors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of momoaudio.
//
// momoaudio is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// momoaudio is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with momoaudio; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package momoaudio

import (
	"errors"
	"fmt"

	"github.com/peterloes/momoaudio/internal/frame"
)

// Communication errors
var (
	// ErrTransportRead indicates a failure reading from the transport
	ErrTransportRead = errors.New("transport read failed")

	// ErrTransportWrite indicates a failure writing to the transport
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportTimeout indicates the transport operation timed out
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrCommunicationFailed indicates the retry budget is exhausted
	ErrCommunicationFailed = errors.New("communication with audio module failed")

	// ErrFrameCorrupted indicates a response frame failed validation
	ErrFrameCorrupted = errors.New("response frame corrupted")

	// ErrChecksumMismatch indicates a response frame checksum error
	ErrChecksumMismatch = frame.ErrChecksumMismatch
)

// State errors
var (
	// ErrEngineOff indicates the engine has not been enabled
	ErrEngineOff = errors.New("audio engine is off")

	// ErrNotOperational indicates the bring-up sequence has not completed
	ErrNotOperational = errors.New("audio engine not operational")

	// ErrLocked indicates a playback or record exchange is outstanding
	ErrLocked = errors.New("audio action already pending")

	// ErrInvalidParameter indicates an invalid argument
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies transport errors for retry decisions
type ErrorType int

const (
	// ErrorTypeTransient indicates a temporary error that may succeed on retry
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates an error that will not succeed on retry
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout occurred
	ErrorTypeTimeout
)

// TransportError provides detailed error information for transport operations
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with the given classification
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout transport error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// IsRetryable reports whether the operation that produced err is
// worth retrying
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
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch):
		return true
	}
	return false
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if errors.Is(err, ErrTransportTimeout) {
		return ErrorTypeTimeout
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
