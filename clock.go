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

import "time"

// Clock supplies the single-shot timers used for the power-up delay,
// the response timeout, the recovery wait and the playback/record
// durations.  It is injected so tests can fire timers deterministically.
type Clock interface {
	// AfterFunc arms a single-shot timer that calls fn after d.
	// fn runs in timer context, concurrent with everything else.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a pending single-shot timer
type Timer interface {
	// Stop cancels the timer, reporting whether it was still pending
	Stop() bool
}

// SystemClock returns the wall-clock implementation of Clock
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
