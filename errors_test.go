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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	t.Parallel()

	err := NewTransportError("write", "/dev/ttyS0", ErrTransportWrite, ErrorTypeTransient)
	assert.Equal(t, "write /dev/ttyS0: transport write failed", err.Error())
	assert.True(t, err.Retryable)
	require.ErrorIs(t, err, ErrTransportWrite)

	bare := NewTransportError("open", "", errors.New("no such device"), ErrorTypePermanent)
	assert.Equal(t, "open: no such device", bare.Error())
	assert.False(t, bare.Retryable)
}

func TestNewTimeoutError(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("read", "/dev/ttyS0")
	assert.Equal(t, ErrorTypeTimeout, err.Type)
	assert.True(t, err.Retryable)
	require.ErrorIs(t, err, ErrTransportTimeout)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout sentinel", err: ErrTransportTimeout, want: true},
		{name: "wrapped read failure", err: fmt.Errorf("loop: %w", ErrTransportRead), want: true},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: true},
		{name: "corrupted frame", err: ErrFrameCorrupted, want: true},
		{name: "engine off", err: ErrEngineOff, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{
			name: "permanent transport error",
			err:  NewTransportError("open", "/dev/ttyS0", errors.New("denied"), ErrorTypePermanent),
			want: false,
		},
		{
			name: "transient transport error",
			err:  NewTransportError("write", "/dev/ttyS0", ErrTransportWrite, ErrorTypeTransient),
			want: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypePermanent, GetErrorType(nil))
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(ErrTransportTimeout))
	assert.Equal(t, ErrorTypeTransient, GetErrorType(ErrChecksumMismatch))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(ErrLocked))
	assert.Equal(t, ErrorTypeTimeout,
		GetErrorType(fmt.Errorf("x: %w", NewTimeoutError("read", ""))))
}
