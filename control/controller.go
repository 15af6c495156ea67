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

// Package control turns transponder detections into timed audio
// actions.  The controller resolves a detected ID against the
// configuration (exact ID, then ANY, then UNKNOWN), decides between
// playback and record, and drives the audio engine through start and
// stop with a single-shot duration timer.  When both durations are
// configured the record phase chains after playback has stopped.
package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/peterloes/momoaudio"
	"github.com/peterloes/momoaudio/config"
)

// Durations applied when an ID record leaves a field empty
const (
	DefaultPlayback     = 120 // seconds
	DefaultRecord       = 240 // seconds
	DefaultPlaybackType = 1
)

// Alarm identifiers for the time-of-day variables
const (
	AlarmOn = iota
	AlarmOff
)

// Output identifies one switchable power output
type Output int

// Power outputs, in configuration name-table order
const (
	OutputRFIDGndLB Output = iota
	OutputUA2
	OutputServo
	OutputLinear
	OutputRFID1
	OutputRFID2
	OutputRFID3
	OutputUA1
)

// outputNames doubles as the enumerated-choice table for the
// RFID_POWER and AUDIO_POWER variables.  Order must match the Output
// constants.
var outputNames = []string{
	"RFID_GND_LB", "UA2", "SERVO", "LINEAR",
	"RFID1", "RFID2", "RFID3", "UA1",
}

func (o Output) String() string {
	if o < 0 || int(o) >= len(outputNames) {
		return fmt.Sprintf("OUTPUT(%d)", int(o))
	}
	return outputNames[o]
}

// rfidTypeNames is the choice table for the RFID_TYPE variable
var rfidTypeNames = []string{"SR", "LR"}

// noOutput marks an unconfigured power-output variable
const noOutput = -1

// Outputs switches the device power rails
type Outputs interface {
	Set(o Output, on bool)
	IsOn(o Output) bool
}

// AudioEngine is the surface of momoaudio.Engine the controller uses
type AudioEngine interface {
	Configure(cfg momoaudio.Config)
	SetEventHandler(fn func(ev momoaudio.Event, ok bool))
	Enable()
	Disable()
	PowerFail()
	Operational() bool
	Locked() bool
	StartPlayback(playType int) error
	StartRecord() error
	StopPlayback() error
	StopRecord() error
}

// phase mirrors the engine lock from the controller's point of view
type phase int

const (
	phaseIdle phase = iota
	phasePlayback
	phaseRecord
)

// Controller owns the per-detection decision logic and the bound
// configuration cells.  One instance exists per device.
type Controller struct {
	log     *slog.Logger
	store   *config.Store
	engine  AudioEngine
	outputs Outputs
	clock   momoaudio.Clock

	mu            sync.Mutex
	phase         phase
	pendingRecord int
	durTimer      momoaudio.Timer

	// configuration cells, written by the store during Load
	onTime        config.TimeOfDay
	offTime       config.TimeOfDay
	lbFilter      int
	rfidType      int
	rfidPower     int
	rfidTimeout   int
	audioPower    int
	volume        int
	storage       int
	inputMode     int
	quality       int
	playbackDur   int
	recordDur     int
	playbackType  int
}

// Option configures a Controller
type Option func(*Controller) error

// WithLogger sets the structured logger
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) error {
		if log == nil {
			return errors.New("nil logger")
		}
		c.log = log
		return nil
	}
}

// WithClock sets the timer source, used by tests
func WithClock(clock momoaudio.Clock) Option {
	return func(c *Controller) error {
		if clock == nil {
			return errors.New("nil clock")
		}
		c.clock = clock
		return nil
	}
}

// New creates the controller, registers its variable table with the
// store and hooks the engine's event stream.
func New(store *config.Store, engine AudioEngine, outputs Outputs, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("control: nil store")
	}
	if engine == nil {
		return nil, errors.New("control: nil engine")
	}
	c := &Controller{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:   store,
		engine:  engine,
		outputs: outputs,
		clock:   momoaudio.SystemClock(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("control: %w", err)
		}
	}
	store.Register(c.variables())
	engine.SetEventHandler(c.onEngineEvent)
	return c, nil
}

// variables is the table of every recognized configuration variable
func (c *Controller) variables() []config.Variable {
	return []config.Variable{
		{Name: "ON_TIME_1", Kind: config.KindTimeOfDay, Bind: &c.onTime, Alarm: AlarmOn},
		{Name: "OFF_TIME_1", Kind: config.KindTimeOfDay, Bind: &c.offTime, Alarm: AlarmOff},
		{Name: "LB_FILTER_DURATION", Kind: config.KindDuration, Bind: &c.lbFilter},
		{Name: "RFID_TYPE", Kind: config.KindEnum, Bind: &c.rfidType, Enum: rfidTypeNames},
		{Name: "RFID_POWER", Kind: config.KindEnum, Bind: &c.rfidPower, Enum: outputNames, Default: noOutput},
		{Name: "RFID_DETECT_TIMEOUT", Kind: config.KindInteger, Bind: &c.rfidTimeout, Min: 1},
		{Name: "AUDIO_POWER", Kind: config.KindEnum, Bind: &c.audioPower, Enum: outputNames, Default: noOutput},
		{Name: "AUDIO_CFG_VC", Kind: config.KindInteger, Bind: &c.volume, Min: 1},
		{Name: "AUDIO_CFG_ST", Kind: config.KindInteger, Bind: &c.storage, Min: 1},
		{Name: "AUDIO_CFG_IM", Kind: config.KindInteger, Bind: &c.inputMode, Min: 1},
		{Name: "AUDIO_CFG_RQ", Kind: config.KindInteger, Bind: &c.quality, Min: 1},
		{Name: "PLAYBACK", Kind: config.KindDuration, Bind: &c.playbackDur, Default: DefaultPlayback},
		{Name: "RECORD", Kind: config.KindDuration, Bind: &c.recordDur, Default: DefaultRecord},
		{Name: "PLAYBACK_TYPE", Kind: config.KindInteger, Bind: &c.playbackType, Min: 1, Default: DefaultPlaybackType},
		{Name: "ID", Kind: config.KindID},
	}
}

// LoadConfig loads the named configuration file and pushes the audio
// settings into the engine.  A failed load leaves the defaults in
// place and is not fatal.
func (c *Controller) LoadConfig(name string) error {
	err := c.store.Load(name)
	if err != nil {
		c.log.Error("configuration load failed", "error", err)
	}
	c.mu.Lock()
	cfg := momoaudio.Config{
		Volume:    c.volume,
		Storage:   c.storage,
		InputMode: c.inputMode,
		Quality:   c.quality,
	}
	c.mu.Unlock()
	c.engine.Configure(cfg)
	return err
}

// DetectTimeout returns the configured RFID detection timeout in
// seconds, 0 if not configured.
func (c *Controller) DetectTimeout() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rfidTimeout
}

// AlarmTriggered handles an ON/OFF alarm from the scheduler.  The ON
// alarm powers the configured outputs and enables the audio engine,
// the OFF alarm does the reverse.
func (c *Controller) AlarmTriggered(alarm int) {
	c.mu.Lock()
	rfidOut, audioOut := c.rfidPower, c.audioPower
	c.mu.Unlock()

	switch alarm {
	case AlarmOn:
		c.log.Info("on alarm", "rfid_power", rfidOut, "audio_power", audioOut)
		c.setOutput(rfidOut, true)
		c.setOutput(audioOut, true)
		c.engine.Enable()
	case AlarmOff:
		c.log.Info("off alarm")
		c.engine.Disable()
		c.setOutput(rfidOut, false)
		c.setOutput(audioOut, false)
	default:
		c.log.Error("unknown alarm", "alarm", alarm)
	}
}

func (c *Controller) setOutput(out int, on bool) {
	if out == noOutput || c.outputs == nil {
		return
	}
	c.outputs.Set(Output(out), on)
}

// OnTransponderDetected handles one detection event.  An empty ID
// means the detection timeout elapsed without reading a transponder.
// Detections arriving while an action is pending are dropped, not
// queued.
func (c *Controller) OnTransponderDetected(id string) {
	if id == "" {
		id = config.TokenUnknown
	}

	rec, ok := c.resolve(id)
	if !ok {
		c.log.Info("no record for transponder", "id", id)
		return
	}
	playback, record, playType := c.effective(rec)
	c.log.Info("transponder detected", "id", id, "record_id", rec.ID,
		"playback", playback, "record", record, "type", playType)

	c.mu.Lock()
	if c.phase != phaseIdle {
		c.mu.Unlock()
		c.log.Info("action pending, detection dropped", "id", id)
		return
	}
	if c.engine.Locked() || !c.engine.Operational() {
		c.mu.Unlock()
		c.log.Info("audio engine busy, detection dropped", "id", id)
		return
	}

	switch {
	case playback > 0:
		c.phase = phasePlayback
		c.pendingRecord = record
		c.armTimerLocked(playback)
		c.mu.Unlock()
		if err := c.engine.StartPlayback(playType); err != nil {
			c.log.Error("playback start failed", "error", err)
			c.abort()
		}
	case record > 0:
		c.phase = phaseRecord
		c.pendingRecord = 0
		c.armTimerLocked(record)
		c.mu.Unlock()
		if err := c.engine.StartRecord(); err != nil {
			c.log.Error("record start failed", "error", err)
			c.abort()
		}
	default:
		c.mu.Unlock()
		c.log.Info("no audio action configured", "id", id)
	}
}

// resolve finds the effective record for an ID, falling back from
// the exact record to ANY and then UNKNOWN
func (c *Controller) resolve(id string) (config.IDRecord, bool) {
	tokens := []string{id, config.TokenAny, config.TokenUnknown}
	if id == config.TokenUnknown {
		tokens = []string{config.TokenUnknown}
	}
	for _, token := range tokens {
		rec, err := c.store.Lookup(token)
		if err == nil {
			return rec, true
		}
		if !errors.Is(err, config.ErrNotFound) {
			c.log.Error("configuration lookup failed", "token", token, "error", err)
		}
	}
	return config.IDRecord{}, false
}

// effective substitutes the configured defaults for unset fields
func (c *Controller) effective(rec config.IDRecord) (playback, record, playType int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	playback, record, playType = rec.KeepPlayback, rec.KeepRecord, rec.PlayType
	if playback == config.Unset {
		playback = c.playbackDur
	}
	if record == config.Unset {
		record = c.recordDur
	}
	if playType == config.Unset {
		playType = c.playbackType
	}
	return playback, record, playType
}

func (c *Controller) armTimerLocked(seconds int) {
	c.durTimer = c.clock.AfterFunc(time.Duration(seconds)*time.Second, c.durationElapsed)
}

// durationElapsed fires when the playback or record duration is over
func (c *Controller) durationElapsed() {
	c.mu.Lock()
	ph := c.phase
	c.durTimer = nil
	c.mu.Unlock()

	switch ph {
	case phasePlayback:
		if err := c.engine.StopPlayback(); err != nil {
			c.log.Error("playback stop failed", "error", err)
			c.abort()
		}
	case phaseRecord:
		if err := c.engine.StopRecord(); err != nil {
			c.log.Error("record stop failed", "error", err)
			c.abort()
		}
	case phaseIdle:
		// stale timer, nothing pending
	}
}

// onEngineEvent chains record after playback and releases the phase
// when an action completes.  Called by the engine outside its lock.
func (c *Controller) onEngineEvent(ev momoaudio.Event, ok bool) {
	switch ev {
	case momoaudio.EventOperational:
		c.log.Info("audio engine operational")
	case momoaudio.EventPlaybackStarted, momoaudio.EventRecordStarted:
		if !ok {
			c.log.Error("start rejected by audio module", "event", ev)
			c.abort()
		}
	case momoaudio.EventPlaybackStopped:
		c.mu.Lock()
		record := c.pendingRecord
		c.pendingRecord = 0
		if record > 0 {
			c.phase = phaseRecord
			c.armTimerLocked(record)
		} else {
			c.phase = phaseIdle
		}
		c.mu.Unlock()
		if record > 0 {
			if err := c.engine.StartRecord(); err != nil {
				c.log.Error("record start failed", "error", err)
				c.abort()
			}
		}
	case momoaudio.EventRecordStopped:
		c.mu.Lock()
		c.phase = phaseIdle
		c.mu.Unlock()
	}
}

// abort cancels the duration timer and returns to idle
func (c *Controller) abort() {
	c.mu.Lock()
	if c.durTimer != nil {
		c.durTimer.Stop()
		c.durTimer = nil
	}
	c.phase = phaseIdle
	c.pendingRecord = 0
	c.mu.Unlock()
}

// Busy reports whether a detection is currently being acted on
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase != phaseIdle
}

// PowerFail cancels everything immediately and switches all power
// outputs off.  The device stays quiet until the next ON alarm.
func (c *Controller) PowerFail() {
	c.log.Error("power fail")
	c.abort()
	c.engine.PowerFail()
	if c.outputs != nil {
		for out := range outputNames {
			c.outputs.Set(Output(out), false)
		}
	}
}
