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

// State describes which step of the audio-module command sequence is
// outstanding.  Exactly one state is active at a time; it is the sole
// arbiter of how an incoming response frame is interpreted.
type State int32

const (
	// StateOff - the audio module is powered off
	StateOff State = iota
	// StatePowerOn - power applied, waiting for the power-up delay
	StatePowerOn
	// StateStatusQuery - "current work status" request outstanding
	StateStatusQuery
	// StateCapacityQuery - "space left" request outstanding
	StateCapacityQuery
	// StateFileCountQuery - "total file numbers" request outstanding
	StateFileCountQuery
	// StateSendVolume - volume configuration push outstanding
	StateSendVolume
	// StateSendStorage - storage device configuration push outstanding
	StateSendStorage
	// StateSendInputMode - input mode configuration push outstanding
	StateSendInputMode
	// StateSendQuality - recording quality configuration push outstanding
	StateSendQuality
	// StatePlaybackStart - play-by-name request outstanding
	StatePlaybackStart
	// StateRecordStart - record-by-name request outstanding
	StateRecordStart
	// StatePlaybackStop - stop-playback request outstanding
	StatePlaybackStop
	// StateRecordStop - stop-record request outstanding
	StateRecordStop
	// StateOperational - command sequence complete, ready for start/stop
	StateOperational
	// StateRecover - waiting out the recovery interval after a
	// communication error before re-issuing power-on
	StateRecover
)

var stateNames = map[State]string{
	StateOff:            "off",
	StatePowerOn:        "power-on",
	StateStatusQuery:    "status-query",
	StateCapacityQuery:  "capacity-query",
	StateFileCountQuery: "file-count-query",
	StateSendVolume:     "send-volume",
	StateSendStorage:    "send-storage",
	StateSendInputMode:  "send-input-mode",
	StateSendQuality:    "send-quality",
	StatePlaybackStart:  "playback-start",
	StateRecordStart:    "record-start",
	StatePlaybackStop:   "playback-stop",
	StateRecordStop:     "record-stop",
	StateOperational:    "operational",
	StateRecover:        "recover",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event notifies the sequence controller about completed audio actions.
// Events are dispatched from the transport's receive context, outside
// the engine's internal lock, so handlers may call back into the engine.
type Event int

const (
	// EventOperational - bring-up sequence completed
	EventOperational Event = iota
	// EventPlaybackStarted - play-by-name acknowledged
	EventPlaybackStarted
	// EventPlaybackStopped - stop-playback acknowledged
	EventPlaybackStopped
	// EventRecordStarted - record-by-name acknowledged
	EventRecordStarted
	// EventRecordStopped - stop-record acknowledged
	EventRecordStopped
)

// action tracks which audio action is logically active.  At most one of
// playback or record may be active at any time (the lock invariant).
type action int

const (
	actionNone action = iota
	actionPlayback
	actionRecord
)
