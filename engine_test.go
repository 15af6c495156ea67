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
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterloes/momoaudio/internal/frame"
	audiotest "github.com/peterloes/momoaudio/internal/testing"
)

// moduleScript answers every request the way a healthy module would:
// the given work status, 1 GB capacity, fileCount files, OK for
// everything else.
func moduleScript(status byte, fileCount uint16) func(raw []byte) [][]byte {
	return func(raw []byte) [][]byte {
		switch raw[2] {
		case frame.CmdQueryStatus:
			return [][]byte{audiotest.BuildStatusResponse(status)}
		case frame.CmdQueryCapacity:
			return [][]byte{audiotest.BuildCapacityResponse(1024)}
		case frame.CmdQueryFileCount:
			return [][]byte{audiotest.BuildFileCountResponse(fileCount)}
		default:
			return [][]byte{audiotest.BuildAck(raw[2], frame.AckOK)}
		}
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MockTransport, *ManualClock) {
	t.Helper()
	tr := NewMockTransport()
	clock := NewManualClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(tr, append([]Option{WithClock(clock), WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return e, tr, clock
}

// bringUp enables the engine and fires the power-up delay; with a
// scripted transport the whole sequence completes synchronously
func bringUp(t *testing.T, e *Engine, clock *ManualClock) {
	t.Helper()
	e.Enable()
	require.True(t, clock.Fire(), "power-up delay not armed")
	require.True(t, e.Operational(), "bring-up did not complete")
}

func TestNewRequiresTransport(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBringUpSequence(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 25)
	e.Configure(Config{Volume: 25, Storage: 1, InputMode: 2, Quality: 3})

	var events []Event
	e.SetEventHandler(func(ev Event, ok bool) {
		events = append(events, ev)
		assert.True(t, ok)
	})

	bringUp(t, e, clock)

	assert.Equal(t, []byte{
		frame.CmdQueryStatus,
		frame.CmdQueryCapacity,
		frame.CmdQueryFileCount,
		frame.CmdSetVolume,
		frame.CmdSetStorage,
		frame.CmdSetInputMode,
		frame.CmdSetQuality,
	}, tr.SentOpcodes())
	assert.Equal(t, []Event{EventOperational}, events)
	assert.False(t, e.Locked())
	assert.Zero(t, e.CommErrors())
	assert.Zero(t, clock.Pending(), "all timers should be disarmed")
}

func TestBringUpStoppedSkipsToOperational(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)

	bringUp(t, e, clock)

	// "stopped" means nothing is running, the remaining queries and
	// configuration pushes are skipped
	assert.Equal(t, []byte{frame.CmdQueryStatus}, tr.SentOpcodes())
}

func TestBringUpUnsetConfigSendsPlaceholders(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 25)

	bringUp(t, e, clock)

	// no Configure call: all four push states send the no-op frame
	assert.Equal(t, []byte{
		frame.CmdQueryStatus,
		frame.CmdQueryCapacity,
		frame.CmdQueryFileCount,
		frame.CmdStopPlayback,
		frame.CmdStopPlayback,
		frame.CmdStopPlayback,
		frame.CmdStopPlayback,
	}, tr.SentOpcodes())
	assert.True(t, e.Operational())
}

func TestConfigureRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 25)
	e.Configure(Config{Volume: 99, Storage: 7, InputMode: 9, Quality: 12})

	bringUp(t, e, clock)

	// every invalid value falls back to the module default placeholder
	ops := tr.SentOpcodes()
	require.Len(t, ops, 7)
	for _, op := range ops[3:] {
		assert.Equal(t, byte(frame.CmdStopPlayback), op)
	}
}

func TestSecondBringUpSkipsCapacityQuery(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 25)

	bringUp(t, e, clock)
	e.Disable()
	first := len(tr.Sent())

	bringUp(t, e, clock)
	ops := tr.SentOpcodes()[first:]
	require.NotEmpty(t, ops)
	assert.Equal(t, byte(frame.CmdQueryStatus), ops[0])
	assert.NotContains(t, ops, byte(frame.CmdQueryCapacity))
}

func TestStartPlaybackDeterministicTypes(t *testing.T) {
	t.Parallel()

	// types 1..5 map directly to the fixed playback files
	for playType := 1; playType <= 5; playType++ {
		e, tr, clock := newTestEngine(t)
		tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
		bringUp(t, e, clock)

		require.NoError(t, e.StartPlayback(playType))
		sent := tr.Sent()
		last := sent[len(sent)-1]
		assert.Equal(t, byte(frame.CmdPlayByName), last[2])
		assert.Equal(t, []byte{'P', '0', '0', byte('0' + playType)}, last[3:7])
	}
}

func TestStartPlaybackRandomTypes(t *testing.T) {
	t.Parallel()

	// type 9 selects uniformly among files 1..5; with a seeded source
	// a few hundred trials must hit every file and nothing else
	r := rand.New(rand.NewSource(1))
	e, tr, clock := newTestEngine(t, WithRandInt(r.Intn))
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	seen := make(map[byte]int)
	for i := 0; i < 300; i++ {
		require.NoError(t, e.StartPlayback(9))
		sent := tr.Sent()
		play := sent[len(sent)-1]
		require.Equal(t, byte(frame.CmdPlayByName), play[2])
		seen[play[6]]++
		require.NoError(t, e.StopPlayback())
	}
	for f := byte('1'); f <= '5'; f++ {
		assert.Positive(t, seen[f], "file %c never selected", f)
	}
	assert.Len(t, seen, 5, "selection outside files 1..5")
}

func TestStartPlaybackRandomUpperBound(t *testing.T) {
	t.Parallel()

	// type 6 selects among files 1..2 only
	var ns []int
	e, tr, clock := newTestEngine(t, WithRandInt(func(n int) int {
		ns = append(ns, n)
		return n - 1
	}))
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	require.NoError(t, e.StartPlayback(6))
	assert.Equal(t, []int{2}, ns)
	sent := tr.Sent()
	assert.Equal(t, byte('2'), sent[len(sent)-1][6])
}

func TestStartPlaybackValidation(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)

	require.ErrorIs(t, e.StartPlayback(1), ErrEngineOff)
	bringUp(t, e, clock)
	require.ErrorIs(t, e.StartPlayback(0), ErrInvalidParameter)
	require.ErrorIs(t, e.StartPlayback(10), ErrInvalidParameter)
}

func TestRecordCounterFromFileCount(t *testing.T) {
	t.Parallel()

	// 25 files on the medium, 5 fixed playback files: recording
	// continues at R021
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 25)
	bringUp(t, e, clock)

	require.NoError(t, e.StartRecord())
	sent := tr.Sent()
	last := sent[len(sent)-1]
	assert.Equal(t, byte(frame.CmdRecordByName), last[2])
	assert.Equal(t, []byte{'R', '0', '2', '1'}, last[3:7])
}

func TestRecordCounterSaturation(t *testing.T) {
	t.Parallel()

	// 1003 files reported: the counter starts at 998, the second
	// recording crosses the 999 limit but is still sent
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusPlaying, 1003)
	bringUp(t, e, clock)

	require.NoError(t, e.StartRecord())
	require.NoError(t, e.StopRecord())
	require.NoError(t, e.StartRecord())

	sent := tr.Sent()
	last := sent[len(sent)-1]
	assert.Equal(t, []byte{'R', '0', '0', '0'}, last[3:7])
}

func TestLockInvariant(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	require.NoError(t, e.StartPlayback(1))
	assert.True(t, e.Locked())

	// the other action is refused while playback is active
	require.ErrorIs(t, e.StartRecord(), ErrLocked)
	require.ErrorIs(t, e.StopRecord(), ErrInvalidParameter)

	require.NoError(t, e.StopPlayback())
	assert.False(t, e.Locked())
	require.NoError(t, e.StartRecord())
	require.NoError(t, e.StopRecord())
}

func TestPlaybackEvents(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)

	var events []Event
	e.SetEventHandler(func(ev Event, ok bool) { events = append(events, ev) })
	bringUp(t, e, clock)

	require.NoError(t, e.StartPlayback(1))
	require.NoError(t, e.StopPlayback())
	assert.Equal(t, []Event{EventOperational, EventPlaybackStarted, EventPlaybackStopped}, events)
}

func TestRecordStartRejectedWhenStorageFull(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	tr.ResponseFunc = func(raw []byte) [][]byte {
		return [][]byte{audiotest.BuildAck(raw[2], frame.AckFailed)}
	}
	var failed bool
	e.SetEventHandler(func(ev Event, ok bool) {
		if ev == EventRecordStarted && !ok {
			failed = true
		}
	})

	require.NoError(t, e.StartRecord())
	assert.True(t, failed)
	assert.False(t, e.Locked(), "failed start must release the lock")
	assert.True(t, e.Operational())
}

func TestCorruptedChecksumDoesNotAdvanceState(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	tr.ResponseFunc = func(raw []byte) [][]byte {
		resp := audiotest.BuildAck(raw[2], frame.AckOK)
		resp[len(resp)-2] ^= 0xFF
		return [][]byte{resp}
	}

	require.NoError(t, e.StartPlayback(1))
	assert.Equal(t, StatePlaybackStart, e.State())
	assert.True(t, e.Locked())
	assert.Equal(t, 1, e.CommErrors())
}

func TestUnexpectedOpcodeCountsError(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	tr.Respond(audiotest.BuildStatusResponse(frame.StatusPlaying))
	assert.Equal(t, 1, e.CommErrors())
	assert.True(t, e.Operational())
}

func TestUnsolicitedStoragePrompt(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)

	tr.Respond(audiotest.BuildPromptResponse(frame.MediaSD))
	assert.Zero(t, e.CommErrors())
	assert.True(t, e.Operational())
}

func TestResponseTimeoutEntersRecovery(t *testing.T) {
	t.Parallel()

	// the module stays silent, every exchange times out
	var powered []bool
	e, _, clock := newTestEngine(t, WithPowerHook(func(on bool) {
		powered = append(powered, on)
	}))

	e.Enable()
	require.True(t, clock.Fire()) // power-up delay, status query goes out
	require.True(t, clock.Fire()) // response timeout
	assert.Equal(t, StateRecover, e.State())
	assert.Equal(t, 1, e.CommErrors())

	require.True(t, clock.Fire()) // recovery wait over, power on again
	assert.Equal(t, StatePowerOn, e.State())
	assert.Equal(t, []bool{true, false, true}, powered)
}

func TestCommErrorBudgetForcesOff(t *testing.T) {
	t.Parallel()
	e, _, clock := newTestEngine(t)

	e.Enable()
	// silent module: every cycle is power-up, timeout, recovery wait
	for i := 0; i < 100 && clock.Fire(); i++ {
	}
	assert.Equal(t, StateOff, e.State())
	assert.Zero(t, clock.Pending())
	require.ErrorIs(t, e.StartPlayback(1), ErrEngineOff)
}

func TestDisableCancelsBringUp(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)

	e.Enable()
	e.Disable()
	assert.Equal(t, StateOff, e.State())
	assert.False(t, clock.Fire(), "no timer may survive disable")
	assert.Empty(t, tr.Sent())
}

func TestPowerFailUnconditionalReset(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)
	require.NoError(t, e.StartPlayback(1))
	require.True(t, e.Locked())

	e.PowerFail()
	assert.Equal(t, StateOff, e.State())
	assert.False(t, e.Locked())
	assert.Zero(t, clock.Pending())
}

func TestLateFramesAfterPowerOffIgnored(t *testing.T) {
	t.Parallel()
	e, tr, clock := newTestEngine(t)
	tr.ResponseFunc = moduleScript(frame.StatusStopped, 25)
	bringUp(t, e, clock)
	e.Disable()

	tr.Respond(audiotest.BuildAck(frame.CmdStopPlayback, frame.AckOK))
	assert.Zero(t, e.CommErrors())
	assert.Equal(t, StateOff, e.State())
}
