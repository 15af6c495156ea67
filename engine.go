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
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peterloes/momoaudio/internal/frame"
)

// Engine timing defaults
const (
	// DefaultPowerUpDelay is the time to wait for the module being
	// ready after power-up.
	DefaultPowerUpDelay = 5 * time.Second

	// DefaultResponseTimeout is the time to wait for a response frame.
	// Capacity queries on large cards can take close to a minute.
	DefaultResponseTimeout = 60 * time.Second

	// DefaultRecoverDelay is the wait before re-issuing power-on after
	// a communication error.
	DefaultRecoverDelay = 60 * time.Second
)

const (
	// maxComErrors is the communication error budget; exceeding it
	// forces the engine off until explicitly re-enabled.
	maxComErrors = 10

	// fixedPlaybackFiles is the number of fixed playback files
	// (P001..P005) present on the storage medium.
	fixedPlaybackFiles = 5

	// maxRecordFiles is the highest record file index the module
	// supports (R001..R999).
	maxRecordFiles = 999
)

// Config holds the values pushed to the audio module during bring-up.
// A zero value means "leave the module default" and makes the engine
// send a no-op placeholder frame so the sequence still advances.
type Config struct {
	// Volume is the volume control parameter, 1..31
	Volume int
	// Storage selects the storage device: 0 MicroSD card, 1 USB flash
	Storage int
	// InputMode selects the recording input: 0 MIC, 1 LINE-IN, 2 AUX
	InputMode int
	// Quality selects the recording bit rate:
	// 0 128 kbps, 1 96 kbps, 2 64 kbps, 3 32 kbps
	Quality int
}

// Engine drives the audio module through its command sequence.  It owns
// the protocol state machine: bring-up after power-on, the four
// configuration pushes, playback/record start and stop, and bounded
// recovery after communication errors.
//
// Response frames are handled from the transport's receive context,
// concurrent with callers; all shared state lives behind one mutex and
// the state value itself is additionally published through an atomic
// cell so status queries never block on the frame handler.
type Engine struct {
	transport Transport
	clock     Clock
	log       *slog.Logger
	randInt   func(n int) int
	powerHook func(on bool)

	powerUpDelay    time.Duration
	responseTimeout time.Duration
	recoverDelay    time.Duration

	state  atomic.Int32
	locked atomic.Bool

	mu           sync.Mutex
	eventFn      func(ev Event, ok bool)
	enabled      bool
	firstBringUp bool
	cfg          Config
	errCount     int
	expect       byte
	action       action
	playFile     int
	recordFile   int
	delayTimer   Timer // power-up delay and recovery wait
	respTimer    Timer // response timeout
}

// command describes one request to send: the state to enter, the frame
// to transmit and the response opcode that completes the exchange.
type command struct {
	state   State
	op      byte
	payload []byte
	expect  byte
}

// event is a deferred notification, dispatched outside the engine lock
type event struct {
	kind Event
	ok   bool
}

// New creates an engine on the given transport and registers its frame
// handler.  The engine starts in the off state; call Enable to power up.
func New(transport Transport, opts ...Option) (*Engine, error) {
	if transport == nil {
		return nil, ErrInvalidParameter
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{
		transport:       transport,
		clock:           SystemClock(),
		log:             slog.Default(),
		randInt:         r.Intn,
		powerUpDelay:    DefaultPowerUpDelay,
		responseTimeout: DefaultResponseTimeout,
		recoverDelay:    DefaultRecoverDelay,
		firstBringUp:    true,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	transport.SetFrameHandler(e.HandleFrame)
	return e, nil
}

// Configure sets the values pushed during the next bring-up sequence.
// Out-of-range values are logged and replaced by the module default.
func (e *Engine) Configure(cfg Config) {
	if cfg.Volume != 0 && (cfg.Volume < 1 || cfg.Volume > 31) {
		e.log.Error("audio: volume control must be between 1 and 31", "value", cfg.Volume)
		cfg.Volume = 0
	}
	if cfg.Storage < 0 || cfg.Storage > 1 {
		e.log.Error("audio: storage device must be 0 or 1", "value", cfg.Storage)
		cfg.Storage = 0
	}
	if cfg.InputMode < 0 || cfg.InputMode > 2 {
		e.log.Error("audio: input mode must be between 0 and 2", "value", cfg.InputMode)
		cfg.InputMode = 0
	}
	if cfg.Quality < 0 || cfg.Quality > 3 {
		e.log.Error("audio: recording quality must be between 0 and 3", "value", cfg.Quality)
		cfg.Quality = 0
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// SetEventHandler registers the callback notified about completed audio
// actions.  The handler may call back into the engine.
func (e *Engine) SetEventHandler(fn func(ev Event, ok bool)) {
	e.mu.Lock()
	e.eventFn = fn
	e.mu.Unlock()
}

// State returns the current protocol state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Operational reports whether the bring-up sequence is complete and no
// start/stop exchange is outstanding.
func (e *Engine) Operational() bool {
	return e.State() == StateOperational
}

// Locked reports whether a playback or record action is active or a
// start/stop exchange is outstanding.
func (e *Engine) Locked() bool {
	return e.locked.Load()
}

// CommErrors returns the current communication error count
func (e *Engine) CommErrors() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errCount
}

// Enable powers the audio module on and starts the bring-up sequence
func (e *Engine) Enable() {
	e.mu.Lock()
	if e.enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = true
	e.mu.Unlock()
	e.powerOn()
}

// Disable powers the audio module off immediately
func (e *Engine) Disable() {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = false
	e.mu.Unlock()
	e.powerOff()
}

// PowerFail brings the engine into a quiescent state unconditionally:
// pending timers are cancelled and the power output is switched off.
func (e *Engine) PowerFail() {
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
	e.powerOff()
}

// StartPlayback resolves the playback type to a file and sends the
// play-by-name request.  Types 1..5 select the file directly, types
// 6..9 select uniformly at random among the first 2..5 files.
func (e *Engine) StartPlayback(playType int) error {
	if playType < 1 || playType > 9 {
		return ErrInvalidParameter
	}
	e.mu.Lock()
	if err := e.startableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	file := playType
	if playType > fixedPlaybackFiles {
		file = e.randInt(playType-4) + 1
	}
	e.locked.Store(true)
	e.action = actionPlayback
	e.playFile = file
	e.mu.Unlock()

	// File name on the medium is P00<n>
	payload := []byte{'P', '0', '0', byte('0' + file)}
	e.send(command{StatePlaybackStart, frame.CmdPlayByName, payload, frame.CmdPlayByName})
	return nil
}

// StartRecord advances the record file counter and sends the
// record-by-name request.  Crossing the 999-file limit is reported but
// the request is still sent.
func (e *Engine) StartRecord() error {
	e.mu.Lock()
	if err := e.startableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.recordFile++
	n := e.recordFile
	e.locked.Store(true)
	e.action = actionRecord
	e.mu.Unlock()

	if n > maxRecordFiles {
		e.log.Error("audio: supports maximum 999 record files", "file", n)
	}
	payload := []byte{'R', byte('0' + (n/100)%10), byte('0' + (n/10)%10), byte('0' + n%10)}
	e.send(command{StateRecordStart, frame.CmdRecordByName, payload, frame.CmdRecordByName})
	return nil
}

// StopPlayback sends the stop-playback request for the active playback
func (e *Engine) StopPlayback() error {
	e.mu.Lock()
	if err := e.stoppableLocked(actionPlayback); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.send(command{StatePlaybackStop, frame.CmdStopPlayback, nil, frame.CmdStopPlayback})
	return nil
}

// StopRecord sends the stop-record request for the active recording
func (e *Engine) StopRecord() error {
	e.mu.Lock()
	if err := e.stoppableLocked(actionRecord); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.send(command{StateRecordStop, frame.CmdStopRecord, nil, frame.CmdStopRecord})
	return nil
}

// startableLocked checks that a new action may be entered
func (e *Engine) startableLocked() error {
	st := State(e.state.Load())
	switch {
	case !e.enabled || st == StateOff:
		return ErrEngineOff
	case e.locked.Load():
		return ErrLocked
	case st != StateOperational:
		return ErrNotOperational
	}
	return nil
}

// stoppableLocked checks that the given action is the active one
func (e *Engine) stoppableLocked(want action) error {
	st := State(e.state.Load())
	switch {
	case !e.enabled || st == StateOff:
		return ErrEngineOff
	case st != StateOperational:
		return ErrNotOperational
	case e.action != want:
		return ErrInvalidParameter
	}
	return nil
}

// powerOn applies power and arms the power-up delay
func (e *Engine) powerOn() {
	e.mu.Lock()
	e.cancelTimersLocked()
	e.setStateLocked(StatePowerOn)
	e.locked.Store(false)
	e.action = actionNone
	e.delayTimer = e.clock.AfterFunc(e.powerUpDelay, e.powerUpElapsed)
	hook := e.powerHook
	e.mu.Unlock()
	if hook != nil {
		hook(true)
	}
	e.log.Info("audio: powered on", "power_up_delay", e.powerUpDelay)
}

// powerOff removes power and resets the protocol state
func (e *Engine) powerOff() {
	e.mu.Lock()
	e.cancelTimersLocked()
	e.setStateLocked(StateOff)
	e.locked.Store(false)
	e.action = actionNone
	hook := e.powerHook
	e.mu.Unlock()
	if hook != nil {
		hook(false)
	}
	e.log.Info("audio: powered off")
}

// powerUpElapsed fires when the power-up delay is over and starts the
// bring-up sequence with the work status query.
func (e *Engine) powerUpElapsed() {
	e.mu.Lock()
	if State(e.state.Load()) != StatePowerOn {
		e.mu.Unlock()
		return
	}
	first := e.firstBringUp
	e.mu.Unlock()
	if first {
		e.log.Info("audio: module should be ready, retrieving module information")
	} else {
		e.log.Info("audio: module should be ready, sending configuration values")
	}
	e.send(command{StateStatusQuery, frame.CmdQueryStatus, nil, frame.CmdQueryStatus})
}

// send transmits one request frame.  The state change and the response
// timeout are committed before the bytes go out, so a response arriving
// synchronously (mock transports) already sees the outstanding state.
func (e *Engine) send(cmd command) {
	raw := frame.Build(cmd.op, cmd.payload)
	e.mu.Lock()
	e.setStateLocked(cmd.state)
	e.expect = cmd.expect
	if e.respTimer != nil {
		e.respTimer.Stop()
	}
	e.respTimer = e.clock.AfterFunc(e.responseTimeout, e.onResponseTimeout)
	e.mu.Unlock()

	if err := e.transport.SendFrame(raw); err != nil {
		// The response timeout covers the lost request
		e.log.Error("audio: send failed", "state", cmd.state, "err", err)
	}
}

// onResponseTimeout fires when no validated response arrived in time.
// It counts the communication error and either gives up (error budget
// exhausted) or powers off and schedules a recovery attempt.
func (e *Engine) onResponseTimeout() {
	e.mu.Lock()
	st := State(e.state.Load())
	if st == StateOff || st == StateOperational || st == StateRecover || st == StatePowerOn {
		e.mu.Unlock()
		return // stale timer, nothing outstanding
	}
	e.errCount++
	n := e.errCount
	e.mu.Unlock()

	e.log.Error("audio: communication timeout", "state", st.String(), "count", n)
	if n > maxComErrors {
		e.log.Error("audio: communication error limit exceeded, giving up",
			"limit", maxComErrors)
		e.mu.Lock()
		e.enabled = false
		e.mu.Unlock()
		e.powerOff()
		return
	}

	// Power off, wait out the recovery interval, then power on again
	e.mu.Lock()
	e.cancelTimersLocked()
	e.setStateLocked(StateRecover)
	e.locked.Store(false)
	e.action = actionNone
	e.delayTimer = e.clock.AfterFunc(e.recoverDelay, e.recoverElapsed)
	hook := e.powerHook
	e.mu.Unlock()
	if hook != nil {
		hook(false)
	}
	e.log.Info("audio: trying to recover", "delay", e.recoverDelay)
}

// recoverElapsed re-issues power-on after the recovery wait
func (e *Engine) recoverElapsed() {
	e.mu.Lock()
	if State(e.state.Load()) != StateRecover || !e.enabled {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.powerOn()
}

// cancelTimersLocked stops any pending delay or response timers
func (e *Engine) cancelTimersLocked() {
	if e.delayTimer != nil {
		e.delayTimer.Stop()
		e.delayTimer = nil
	}
	if e.respTimer != nil {
		e.respTimer.Stop()
		e.respTimer = nil
	}
}

func (e *Engine) setStateLocked(s State) {
	e.state.Store(int32(s))
}

// dispatch delivers an event to the registered handler, outside the lock
func (e *Engine) dispatch(ev event) {
	e.mu.Lock()
	fn := e.eventFn
	e.mu.Unlock()
	if fn != nil {
		fn(ev.kind, ev.ok)
	}
}
