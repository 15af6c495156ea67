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

// Package momoaudio drives an FN-RM01 MP3 audio recorder module over a
// serial link.  It is the audio half of a battery-powered field device
// that identifies wild animals by RFID transponder and answers a
// detection with timed playback or recording.
//
// The Engine owns the protocol state machine: after Enable it waits out
// the module's power-up delay, queries work status, storage capacity
// and file count, pushes the configured volume, storage device, input
// mode and recording quality, and then reports itself operational.
// From there StartPlayback, StartRecord, StopPlayback and StopRecord
// each perform one framed request/response exchange.  Every exchange is
// covered by a response timeout; repeated failures power the module off
// and retry after a recovery interval, up to a bounded error budget.
//
// Basic usage:
//
//	transport, err := uart.New("/dev/ttyS0")
//	if err != nil {
//		return err
//	}
//	engine, err := momoaudio.New(transport)
//	if err != nil {
//		return err
//	}
//	engine.Configure(momoaudio.Config{Volume: 25})
//	engine.Enable()
//
// The companion packages config and control supply the configuration
// file parser and the per-detection sequencing on top of the Engine.
package momoaudio
