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

// Package uart implements the serial transport to the audio module.
// A background reader assembles the delimited byte stream into whole
// frames and hands them to the registered frame handler.
package uart

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/peterloes/momoaudio"
	"github.com/peterloes/momoaudio/internal/frame"
)

// DefaultBaudRate is the audio module's fixed rate, 8N1
const DefaultBaudRate = 9600

// readBufferSize is the chunk size for port reads
const readBufferSize = 64

// Transport implements momoaudio.Transport over a serial port
type Transport struct {
	port     serial.Port
	log      *slog.Logger
	portName string
	baudRate int

	handlerMu sync.RWMutex
	handler   func(raw []byte)

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
}

// Option configures the transport
type Option func(*Transport) error

// WithBaudRate overrides the default baud rate
func WithBaudRate(rate int) Option {
	return func(t *Transport) error {
		if rate <= 0 {
			return errors.New("invalid baud rate")
		}
		t.baudRate = rate
		return nil
	}
}

// WithLogger sets the structured logger
func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) error {
		if log == nil {
			return errors.New("nil logger")
		}
		t.log = log
		return nil
	}
}

// New opens the named serial port and starts the reader
func New(portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		portName: portName,
		baudRate: DefaultBaudRate,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, momoaudio.NewTransportError("open", portName, err,
				momoaudio.ErrorTypePermanent)
		}
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, momoaudio.NewTransportError("open", portName, err,
			momoaudio.ErrorTypePermanent)
	}
	t.port = port

	go t.readLoop()
	return t, nil
}

// SendFrame writes one complete frame to the port
func (t *Transport) SendFrame(raw []byte) error {
	if t.closed.Load() {
		return momoaudio.NewTransportError("write", t.portName,
			momoaudio.ErrTransportWrite, momoaudio.ErrorTypePermanent)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	for len(raw) > 0 {
		n, err := t.port.Write(raw)
		if err != nil {
			return momoaudio.NewTransportError("write", t.portName, err,
				momoaudio.ErrorTypeTransient)
		}
		raw = raw[n:]
	}
	return nil
}

// SetFrameHandler registers the receive callback.  Must be set before
// frames are expected; frames arriving without a handler are dropped.
func (t *Transport) SetFrameHandler(fn func(raw []byte)) {
	t.handlerMu.Lock()
	t.handler = fn
	t.handlerMu.Unlock()
}

// Close stops the reader and closes the port
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.port.Close()
	<-t.done
	if err != nil {
		return momoaudio.NewTransportError("close", t.portName, err,
			momoaudio.ErrorTypePermanent)
	}
	return nil
}

// IsConnected reports whether the port is open
func (t *Transport) IsConnected() bool {
	return !t.closed.Load()
}

// Type returns momoaudio.TransportUART
func (*Transport) Type() momoaudio.TransportType {
	return momoaudio.TransportUART
}

// readLoop reads the port until it is closed, feeding an assembler
// that carves whole frames out of the byte stream
func (t *Transport) readLoop() {
	defer close(t.done)
	asm := newAssembler(t.deliver, t.log)
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			if t.closed.CompareAndSwap(false, true) {
				t.log.Error("serial read failed", "port", t.portName, "error", err)
				_ = t.port.Close()
			}
			return
		}
		asm.feed(buf[:n])
	}
}

func (t *Transport) deliver(raw []byte) {
	t.handlerMu.RLock()
	handler := t.handler
	t.handlerMu.RUnlock()
	if handler == nil {
		t.log.Error("frame received before handler registered", "port", t.portName)
		return
	}
	handler(raw)
}

// assembler reconstructs delimited frames from the raw byte stream.
// The length byte bounds every frame, so the buffer never grows past
// the largest legal frame.  Noise between frames (the idle line reads
// as 0xFF) is skipped while hunting for the opening delimiter.
type assembler struct {
	deliver func(raw []byte)
	log     *slog.Logger
	buf     []byte
	want    int
	inFrame bool
}

func newAssembler(deliver func(raw []byte), log *slog.Logger) *assembler {
	return &assembler{
		deliver: deliver,
		log:     log,
		buf:     make([]byte, 0, frame.MaxPayload+5),
	}
}

func (a *assembler) feed(data []byte) {
	for _, b := range data {
		a.next(b)
	}
}

func (a *assembler) next(b byte) {
	if !a.inFrame {
		if b == frame.Delimiter {
			a.inFrame = true
			a.buf = a.buf[:0]
			a.buf = append(a.buf, b)
			a.want = 0
		}
		return
	}

	if a.want == 0 {
		// second byte is the length; it counts itself, the opcode,
		// the payload and the checksum
		if b == frame.Delimiter {
			// trailing delimiter of the previous frame, keep hunting
			return
		}
		if int(b) < 3 || int(b) > frame.MaxPayload+3 {
			a.log.Error("frame length out of range, resyncing", "length", b)
			a.inFrame = false
			return
		}
		a.want = int(b) + 2
		a.buf = append(a.buf, b)
		return
	}

	a.buf = append(a.buf, b)
	if len(a.buf) < a.want {
		return
	}

	if b != frame.Delimiter {
		a.log.Error("frame trailer missing, resyncing", "got", b)
		a.inFrame = false
		return
	}
	raw := make([]byte, len(a.buf))
	copy(raw, a.buf)
	a.inFrame = false
	a.deliver(raw)
}
