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

package uart

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterloes/momoaudio/internal/frame"
)

func newTestAssembler() (*assembler, *[][]byte) {
	var frames [][]byte
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	asm := newAssembler(func(raw []byte) {
		frames = append(frames, raw)
	}, logger)
	return asm, &frames
}

func TestAssemblerWholeFrame(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	raw := frame.Build(frame.CmdQueryStatus, []byte{frame.StatusStopped})
	asm.feed(raw)

	require.Len(t, *frames, 1)
	assert.Equal(t, raw, (*frames)[0])
}

func TestAssemblerByteAtATime(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	raw := frame.Build(frame.CmdQueryFileCount, []byte{0x00, 0x19})
	for _, b := range raw {
		asm.feed([]byte{b})
	}

	require.Len(t, *frames, 1)
	assert.Equal(t, raw, (*frames)[0])
}

func TestAssemblerSkipsIdleNoise(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	// the idle line reads as 0xFF between frames
	raw := frame.Build(frame.RespStoragePrompt, []byte{frame.MediaSD})
	stream := append([]byte{0xFF, 0xFF, 0x00, 0xFF}, raw...)
	stream = append(stream, 0xFF, 0xFF)
	asm.feed(stream)

	require.Len(t, *frames, 1)
	assert.Equal(t, raw, (*frames)[0])
}

func TestAssemblerBackToBackFrames(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	first := frame.Build(frame.CmdQueryStatus, []byte{frame.StatusPlaying})
	second := frame.Build(frame.CmdSetVolume, []byte{frame.AckOK})
	asm.feed(append(append([]byte{}, first...), second...))

	require.Len(t, *frames, 2)
	assert.Equal(t, first, (*frames)[0])
	assert.Equal(t, second, (*frames)[1])
}

func TestAssemblerResyncsAfterBadLength(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	// delimiter followed by an impossible length byte
	asm.feed([]byte{frame.Delimiter, 0xF0, 0x01, 0x02})
	good := frame.Build(frame.CmdQueryStatus, nil)
	asm.feed(good)

	require.Len(t, *frames, 1)
	assert.Equal(t, good, (*frames)[0])
}

func TestAssemblerResyncsAfterMissingTrailer(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	bad := frame.Build(frame.CmdQueryStatus, nil)
	bad[len(bad)-1] = 0x00 // clobber the trailing delimiter
	asm.feed(bad)
	require.Empty(t, *frames)

	good := frame.Build(frame.CmdQueryFileCount, nil)
	asm.feed(good)
	require.Len(t, *frames, 1)
	assert.Equal(t, good, (*frames)[0])
}

func TestAssemblerDelimiterRunBetweenFrames(t *testing.T) {
	t.Parallel()
	asm, frames := newTestAssembler()

	// duplicate delimiters between two frames must not break framing
	first := frame.Build(frame.CmdStopPlayback, nil)
	second := frame.Build(frame.CmdStopRecord, nil)
	stream := append(append([]byte{}, first...), frame.Delimiter)
	stream = append(stream, second...)
	asm.feed(stream)

	require.Len(t, *frames, 2)
	assert.Equal(t, first, (*frames)[0])
	assert.Equal(t, second, (*frames)[1])
}
