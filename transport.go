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

// Transport defines the interface for communication with the audio
// module.  The exchange is fully asynchronous: SendFrame queues the raw
// frame bytes for transmission and returns, and complete response frames
// arrive later through the frame handler, called from the transport's
// receive context (a goroutine for serial backends, the test body for
// mocks).  The engine never blocks waiting for a response.
type Transport interface {
	// SendFrame transmits one complete raw frame
	SendFrame(raw []byte) error

	// SetFrameHandler registers the callback invoked for every complete
	// frame received from the module.  Must be set before any exchange.
	SetFrameHandler(fn func(raw []byte))

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)
