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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
		want    []byte
		opcode  byte
	}{
		{
			name:   "status query has no payload",
			opcode: CmdQueryStatus,
			want:   []byte{0x7E, 0x03, 0xC2, 0xC5, 0x7E},
		},
		{
			name:   "file count query",
			opcode: CmdQueryFileCount,
			want:   []byte{0x7E, 0x03, 0xC5, 0xC8, 0x7E},
		},
		{
			name:    "volume control",
			opcode:  CmdSetVolume,
			payload: []byte{0x19},
			want:    []byte{0x7E, 0x04, 0xAE, 0x19, 0xCB, 0x7E},
		},
		{
			name:    "play file P001 by name",
			opcode:  CmdPlayByName,
			payload: []byte{'P', '0', '0', '1'},
			want:    []byte{0x7E, 0x07, 0xA3, 0x50, 0x30, 0x30, 0x31, 0x8B, 0x7E},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Build(tt.opcode, tt.payload)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := [][]byte{
		nil,
		{0x00},
		{'R', '0', '2', '1'},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for _, payload := range payloads {
		raw := Build(CmdRecordByName, payload)
		op, got, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, byte(CmdRecordByName), op)
		assert.Equal(t, len(payload), len(got))
		if len(payload) > 0 {
			assert.Equal(t, payload, got)
		}
	}
}

func TestParseRejectsMutations(t *testing.T) {
	t.Parallel()

	base := Build(CmdPlayByName, []byte{'P', '0', '0', '2'})

	// flipping any byte between the delimiters must fail validation
	for i := 1; i < len(base)-1; i++ {
		raw := make([]byte, len(base))
		copy(raw, base)
		raw[i] ^= 0x01
		_, _, err := Parse(raw)
		assert.Error(t, err, "mutated byte %d accepted", i)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		raw     []byte
	}{
		{
			name:    "too short",
			raw:     []byte{0x7E, 0x03, 0xC2},
			wantErr: ErrFrameTooShort,
		},
		{
			name:    "missing leading delimiter",
			raw:     []byte{0x00, 0x03, 0xC2, 0xC5, 0x7E},
			wantErr: ErrBadDelimiter,
		},
		{
			name:    "missing trailing delimiter",
			raw:     []byte{0x7E, 0x03, 0xC2, 0xC5, 0x00},
			wantErr: ErrBadDelimiter,
		},
		{
			name:    "length does not match frame size",
			raw:     []byte{0x7E, 0x04, 0xC2, 0xC5, 0x7E},
			wantErr: ErrLengthMismatch,
		},
		{
			name:    "checksum mismatch",
			raw:     []byte{0x7E, 0x03, 0xC2, 0xC6, 0x7E},
			wantErr: ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Parse(tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChecksumTruncatesToLowByte(t *testing.T) {
	t.Parallel()

	// 0x07 + 0xA3 + 4*0x50 = 0x1EA, low byte 0xEA
	got := Checksum(0x07, 0xA3, []byte{0x50, 0x50, 0x50, 0x50})
	assert.Equal(t, byte(0xEA), got)
}
