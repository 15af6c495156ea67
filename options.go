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
	"time"
)

// Option is a functional option for configuring an Engine
type Option func(*Engine) error

// WithLogger sets the logger used for diagnostic output
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) error {
		if log == nil {
			return ErrInvalidParameter
		}
		e.log = log
		return nil
	}
}

// WithClock sets the timer source.  Tests supply a manual clock to fire
// the power-up delay, response timeout and recovery wait deterministically.
func WithClock(clock Clock) Option {
	return func(e *Engine) error {
		if clock == nil {
			return ErrInvalidParameter
		}
		e.clock = clock
		return nil
	}
}

// WithRandInt sets the random source used to resolve playback types
// 6..9.  fn must return a value in [0,n).  The default source is seeded
// once per engine creation; tests supply a deterministic one.
func WithRandInt(fn func(n int) int) Option {
	return func(e *Engine) error {
		if fn == nil {
			return ErrInvalidParameter
		}
		e.randInt = fn
		return nil
	}
}

// WithPowerHook sets the callback that switches the audio module's
// power rail.  It is invoked outside the engine's internal lock.
func WithPowerHook(fn func(on bool)) Option {
	return func(e *Engine) error {
		e.powerHook = fn
		return nil
	}
}

// WithPowerUpDelay sets the wait after power-on before the bring-up
// sequence starts.
func WithPowerUpDelay(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return ErrInvalidParameter
		}
		e.powerUpDelay = d
		return nil
	}
}

// WithResponseTimeout sets the wait for a response frame
func WithResponseTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return ErrInvalidParameter
		}
		e.responseTimeout = d
		return nil
	}
}

// WithRecoverDelay sets the wait before re-issuing power-on after a
// communication error.
func WithRecoverDelay(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return ErrInvalidParameter
		}
		e.recoverDelay = d
		return nil
	}
}
