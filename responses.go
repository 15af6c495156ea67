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
	"github.com/peterloes/momoaudio/internal/frame"
)

// respHandler interprets the payload of a validated, matching response
// for one outstanding state.  Handlers run with the engine lock held and
// return the next request to send and an event to dispatch, both of
// which the caller executes after releasing the lock.
type respHandler func(e *Engine, payload []byte) (next *command, ev *event)

// respTable maps each outstanding state to its response handler.  The
// expected opcode is recorded per request (Engine.expect) because the
// configuration-push states substitute a placeholder frame for unset
// values.  A response whose opcode does not match never reaches this
// table.
var respTable = map[State]respHandler{
	StateStatusQuery:    handleStatus,
	StateCapacityQuery:  handleCapacity,
	StateFileCountQuery: handleFileCount,
	StateSendVolume:     handleVolumeAck,
	StateSendStorage:    handleStorageAck,
	StateSendInputMode:  handleInputModeAck,
	StateSendQuality:    handleQualityAck,
	StatePlaybackStart:  handlePlaybackStartAck,
	StateRecordStart:    handleRecordStartAck,
	StatePlaybackStop:   handlePlaybackStopAck,
	StateRecordStop:     handleRecordStopAck,
}

// HandleFrame processes one complete raw frame received from the audio
// module.  It is invoked from the transport's receive context and is
// safe to call concurrently with every other engine method.  Malformed
// or unexpected frames count as communication errors and never advance
// the state machine; in particular they do not disarm the response
// timeout.
func (e *Engine) HandleFrame(raw []byte) {
	op, payload, err := frame.Parse(raw)
	if err != nil {
		e.mu.Lock()
		e.errCount++
		n := e.errCount
		e.mu.Unlock()
		e.log.Error("audio: rejected frame", "err", err, "count", n)
		return
	}

	e.mu.Lock()
	st := State(e.state.Load())
	if st == StateOff || st == StateRecover {
		e.mu.Unlock()
		return // late bytes after power-off, ignore
	}

	// The storage prompt arrives unsolicited after power-up and on
	// media changes while operational.
	if op == frame.RespStoragePrompt && (st == StatePowerOn || st == StateOperational) {
		e.mu.Unlock()
		e.logMedia(payload)
		return
	}

	handler, outstanding := respTable[st]
	if !outstanding || op != e.expect {
		e.errCount++
		n := e.errCount
		e.mu.Unlock()
		e.log.Error("audio: unexpected response", "opcode", op,
			"state", st.String(), "count", n)
		return
	}

	// A validated, matching response completes the exchange
	if e.respTimer != nil {
		e.respTimer.Stop()
		e.respTimer = nil
	}
	next, ev := handler(e, payload)
	e.mu.Unlock()

	if next != nil {
		e.send(*next)
	}
	if ev != nil {
		e.dispatch(*ev)
	}
}

// logMedia reports the storage prompt payload
func (e *Engine) logMedia(payload []byte) {
	media := byte(frame.MediaNone)
	if len(payload) > 0 {
		media = payload[0]
	}
	switch media {
	case frame.MediaBoth:
		e.log.Info("audio: MicroSD card and USB flash drive inserted")
	case frame.MediaSD:
		e.log.Info("audio: MicroSD card inserted")
	case frame.MediaUSB:
		e.log.Info("audio: USB flash drive inserted")
	default:
		e.log.Warn("audio: storage media removed")
	}
}

// operationalLocked completes the bring-up sequence
func (e *Engine) operationalLocked() *event {
	e.setStateLocked(StateOperational)
	e.locked.Store(false)
	e.action = actionNone
	e.errCount = 0
	e.firstBringUp = false
	e.log.Info("audio: module is operational now")
	return &event{EventOperational, true}
}

func handleStatus(e *Engine, payload []byte) (*command, *event) {
	status := byte(0)
	if len(payload) > 0 {
		status = payload[0]
	}
	switch status {
	case frame.StatusStopped:
		// Nothing is running, configuration pushes can be skipped
		e.log.Info("audio: work status stopped")
		return nil, e.operationalLocked()
	case frame.StatusPlaying:
		e.log.Info("audio: work status playing")
	case frame.StatusPaused:
		e.log.Info("audio: work status paused")
	case frame.StatusRecording:
		e.log.Info("audio: work status recording")
	case frame.StatusSeeking:
		e.log.Info("audio: work status fast forward/backward")
	default:
		e.log.Error("audio: unknown work status", "status", status)
	}
	if e.firstBringUp {
		return &command{StateCapacityQuery, frame.CmdQueryCapacity, nil,
			frame.CmdQueryCapacity}, nil
	}
	return fileCountQuery(), nil
}

func fileCountQuery() *command {
	return &command{StateFileCountQuery, frame.CmdQueryFileCount, nil,
		frame.CmdQueryFileCount}
}

func handleCapacity(e *Engine, payload []byte) (*command, *event) {
	mb := 0
	if len(payload) >= 2 {
		mb = int(payload[0])<<8 | int(payload[1])
	}
	if mb == 0 {
		// Resource exhaustion is reported but bring-up continues
		e.log.Error("audio: no space left on storage device")
	} else {
		e.log.Info("audio: capacity left", "megabytes", mb)
	}
	return fileCountQuery(), nil
}

func handleFileCount(e *Engine, payload []byte) (*command, *event) {
	count := 0
	if len(payload) >= 2 {
		count = int(payload[0])<<8 | int(payload[1])
	}
	if count == 0 {
		e.log.Error("audio: no files on storage device")
	} else {
		// The counter continues after the fixed playback files
		e.recordFile = count - fixedPlaybackFiles
		if e.recordFile < 0 {
			e.recordFile = 0
		}
		e.log.Info("audio: total file numbers", "count", count,
			"next_record_file", e.recordFile+1)
	}
	return e.configPushLocked(StateSendVolume), nil
}

// configPushLocked builds the request for one configuration-push state.
// Unset values are replaced by a no-op placeholder frame (stop-playback)
// so the bring-up sequence still advances through every push state.
func (e *Engine) configPushLocked(st State) *command {
	placeholder := func() *command {
		return &command{st, frame.CmdStopPlayback, nil, frame.CmdStopPlayback}
	}
	switch st {
	case StateSendVolume:
		if e.cfg.Volume >= 1 && e.cfg.Volume <= 31 {
			return &command{st, frame.CmdSetVolume,
				[]byte{byte(e.cfg.Volume)}, frame.CmdSetVolume}
		}
	case StateSendStorage:
		if e.cfg.Storage == 1 {
			return &command{st, frame.CmdSetStorage,
				[]byte{0x01}, frame.CmdSetStorage}
		}
	case StateSendInputMode:
		if e.cfg.InputMode == 1 || e.cfg.InputMode == 2 {
			return &command{st, frame.CmdSetInputMode,
				[]byte{byte(e.cfg.InputMode)}, frame.CmdSetInputMode}
		}
	case StateSendQuality:
		if e.cfg.Quality >= 1 && e.cfg.Quality <= 3 {
			return &command{st, frame.CmdSetQuality,
				[]byte{byte(e.cfg.Quality)}, frame.CmdSetQuality}
		}
	}
	return placeholder()
}

// ackOK extracts the acknowledge byte; an empty payload counts as OK
func ackOK(payload []byte) bool {
	return len(payload) == 0 || payload[0] == frame.AckOK
}

func handleVolumeAck(e *Engine, payload []byte) (*command, *event) {
	if !ackOK(payload) {
		e.log.Error("audio: volume configuration failed")
	} else if e.cfg.Volume != 0 {
		e.log.Info("audio: volume configured", "volume", e.cfg.Volume)
	}
	return e.configPushLocked(StateSendStorage), nil
}

func handleStorageAck(e *Engine, payload []byte) (*command, *event) {
	if !ackOK(payload) {
		e.log.Error("audio: storage device configuration failed")
	} else if e.cfg.Storage == 1 {
		e.log.Info("audio: USB flash drive selected")
	} else {
		e.log.Info("audio: MicroSD card selected")
	}
	return e.configPushLocked(StateSendInputMode), nil
}

func handleInputModeAck(e *Engine, payload []byte) (*command, *event) {
	if !ackOK(payload) {
		e.log.Error("audio: input mode configuration failed")
	} else {
		modes := [...]string{"MIC", "LINE-IN", "2-channel AUX"}
		e.log.Info("audio: input mode configured", "input", modes[e.cfg.InputMode])
	}
	return e.configPushLocked(StateSendQuality), nil
}

func handleQualityAck(e *Engine, payload []byte) (*command, *event) {
	if !ackOK(payload) {
		e.log.Error("audio: recording quality configuration failed")
	} else {
		rates := [...]int{128, 96, 64, 32}
		e.log.Info("audio: recording quality configured",
			"kbps", rates[e.cfg.Quality])
	}
	return nil, e.operationalLocked()
}

func handlePlaybackStartAck(e *Engine, payload []byte) (*command, *event) {
	e.setStateLocked(StateOperational)
	if !ackOK(payload) {
		e.log.Error("audio: playback start failed", "file", e.playFile)
		e.locked.Store(false)
		e.action = actionNone
		return nil, &event{EventPlaybackStarted, false}
	}
	e.log.Info("audio: playback on", "file", e.playFile)
	return nil, &event{EventPlaybackStarted, true}
}

func handleRecordStartAck(e *Engine, payload []byte) (*command, *event) {
	e.setStateLocked(StateOperational)
	if !ackOK(payload) {
		if len(payload) > 0 && payload[0] == frame.AckFailed {
			e.log.Error("audio: storage device is full")
		} else {
			e.log.Error("audio: record start failed", "file", e.recordFile)
		}
		e.locked.Store(false)
		e.action = actionNone
		return nil, &event{EventRecordStarted, false}
	}
	e.log.Info("audio: record on", "file", e.recordFile)
	return nil, &event{EventRecordStarted, true}
}

func handlePlaybackStopAck(e *Engine, payload []byte) (*command, *event) {
	e.setStateLocked(StateOperational)
	ok := ackOK(payload)
	if !ok {
		e.log.Error("audio: playback stop failed")
	} else {
		e.log.Info("audio: playback off")
	}
	e.locked.Store(false)
	e.action = actionNone
	return nil, &event{EventPlaybackStopped, ok}
}

func handleRecordStopAck(e *Engine, payload []byte) (*command, *event) {
	e.setStateLocked(StateOperational)
	ok := ackOK(payload)
	if !ok {
		e.log.Error("audio: record stop failed")
	} else {
		e.log.Info("audio: record off")
	}
	e.locked.Store(false)
	e.action = actionNone
	return nil, &event{EventRecordStopped, ok}
}
