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
	"sync"
	"time"
)

// MockTransport is an in-memory transport for tests.  A response
// function scripts the audio module: for every sent frame it returns
// the raw response frames to deliver, which are handed to the frame
// handler synchronously from within SendFrame - the closest analog to
// the interrupt-context delivery on the real device.
type MockTransport struct {
	// ResponseFunc scripts the module's replies; nil means silence
	ResponseFunc func(raw []byte) [][]byte

	mu      sync.Mutex
	handler func(raw []byte)
	sent    [][]byte
	closed  bool
}

// NewMockTransport creates a mock transport with no scripted responses
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// SendFrame records the frame and delivers any scripted responses
func (m *MockTransport) SendFrame(raw []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrTransportWrite
	}
	m.sent = append(m.sent, append([]byte(nil), raw...))
	respond := m.ResponseFunc
	handler := m.handler
	m.mu.Unlock()

	if respond == nil || handler == nil {
		return nil
	}
	for _, resp := range respond(raw) {
		handler(resp)
	}
	return nil
}

// SetFrameHandler registers the receive callback
func (m *MockTransport) SetFrameHandler(fn func(raw []byte)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// Respond injects one unsolicited frame, as if received from the module
func (m *MockTransport) Respond(raw []byte) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(raw)
	}
}

// Sent returns a copy of all frames sent so far
func (m *MockTransport) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentOpcodes returns the opcode byte of every sent frame
func (m *MockTransport) SentOpcodes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]byte, 0, len(m.sent))
	for _, f := range m.sent {
		if len(f) > 2 {
			ops = append(ops, f[2])
		}
	}
	return ops
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// IsConnected reports whether the transport is open
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType { return TransportMock }

// ManualClock is a Clock for tests whose timers fire only when the test
// says so.  Stopped and fired timers drop out of the pending set.
type ManualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	fn      func()
	d       time.Duration
	stopped bool
	fired   bool
}

// NewManualClock creates a manual clock with no pending timers
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc registers a timer that fires only via Fire
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, fn: fn, d: d}
	c.timers = append(c.timers, t)
	return t
}

// Fire fires the oldest pending timer, reporting whether one was pending
func (c *ManualClock) Fire() bool {
	c.mu.Lock()
	var fire *manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			fire = t
			break
		}
	}
	c.mu.Unlock()
	if fire == nil {
		return false
	}
	fire.fn()
	return true
}

// Pending returns the number of timers armed and not yet fired
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}
