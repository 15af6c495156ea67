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

// Package testing provides frame builders shared by the package tests.
package testing

import "github.com/peterloes/momoaudio/internal/frame"

// BuildStatusResponse builds a work status response frame
func BuildStatusResponse(status byte) []byte {
	return frame.Build(frame.CmdQueryStatus, []byte{status})
}

// BuildCapacityResponse builds a capacity response with the size in MB
func BuildCapacityResponse(megabytes uint16) []byte {
	return frame.Build(frame.CmdQueryCapacity,
		[]byte{byte(megabytes >> 8), byte(megabytes)})
}

// BuildFileCountResponse builds a file count response
func BuildFileCountResponse(count uint16) []byte {
	return frame.Build(frame.CmdQueryFileCount,
		[]byte{byte(count >> 8), byte(count)})
}

// BuildAck builds an acknowledge frame for the given opcode
func BuildAck(opcode, result byte) []byte {
	return frame.Build(opcode, []byte{result})
}

// BuildPromptResponse builds an unsolicited storage prompt frame
func BuildPromptResponse(media byte) []byte {
	return frame.Build(frame.RespStoragePrompt, []byte{media})
}
