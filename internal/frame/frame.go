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

// Package frame provides frame encoding, decoding and protocol constants
// for the serial link to the FN-RM01 audio recorder module.
//
// Every command and response travels in one delimited frame:
//
//	[0x7E] [length] [opcode] [payload...] [checksum] [0x7E]
//
// The length byte counts all bytes between the delimiters, including
// itself and the checksum.  The checksum is the low 8 bits of the sum of
// the length byte, the opcode and the payload bytes.
package frame

import "errors"

// Delimiter marks the start and the end of every frame.
const Delimiter = 0x7E

// Frame size limits
const (
	// MinLength is the shortest valid frame: delimiter, length, opcode,
	// checksum, delimiter.
	MinLength = 5

	// MaxPayload bounds the payload so receive buffers stay fixed-size.
	MaxPayload = 16
)

// Command opcodes (FN-RM01 manual, section 4.3/4.4)
const (
	CmdQueryStatus    = 0xC2 // 4.4.2 current work status
	CmdQueryFileCount = 0xC5 // 4.4.3 total file numbers on storage
	CmdQueryCapacity  = 0xCE // 4.4.9 space left in the storage device
	CmdSetVolume      = 0xAE // 4.3.9 volume control, 1..31
	CmdSetStorage     = 0xD2 // 4.3.13 storage device selection
	CmdSetInputMode   = 0xD3 // 4.3.14 recording input mode
	CmdSetQuality     = 0xD4 // 4.3.15 recording quality (bit rate)
	CmdPlayByName     = 0xA3 // 4.3.2 playback of a file by name
	CmdRecordByName   = 0xD6 // 4.3.17 recording of a file by name
	CmdStopPlayback   = 0xAB // 4.3.6 stop playback
	CmdStopRecord     = 0xD9 // 4.3.20 stop recording
)

// RespStoragePrompt is sent by the module after power-up and whenever
// storage media is inserted or removed.
const RespStoragePrompt = 0xCA

// Storage prompt payload values
const (
	MediaBoth = 0x00 // MicroSD card and USB flash connected
	MediaSD   = 0x01 // MicroSD card only
	MediaUSB  = 0x02 // USB flash only
	MediaNone = 0x03 // no storage media connected
)

// Work status payload values (response to CmdQueryStatus)
const (
	StatusPlaying   = 0x01
	StatusStopped   = 0x02
	StatusPaused    = 0x03
	StatusRecording = 0x04
	StatusSeeking   = 0x05
)

// Command acknowledge payload values
const (
	AckOK       = 0x00
	AckFailed   = 0x01 // for CmdRecordByName: storage device is full
	AckRejected = 0x02
)

// Frame decoding errors
var (
	ErrFrameTooShort    = errors.New("frame too short")
	ErrBadDelimiter     = errors.New("missing frame delimiter")
	ErrLengthMismatch   = errors.New("frame length mismatch")
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
	ErrPayloadTooLarge  = errors.New("frame payload too large")
)

// Checksum computes the additive checksum over the length byte, the
// opcode and the payload.
func Checksum(length, opcode byte, payload []byte) byte {
	sum := int(length) + int(opcode)
	for _, b := range payload {
		sum += int(b)
	}
	return byte(sum)
}

// Build encodes one complete frame for the given opcode and payload.
func Build(opcode byte, payload []byte) []byte {
	length := byte(len(payload) + 3) // length + opcode + payload + checksum
	buf := make([]byte, 0, len(payload)+5)
	buf = append(buf, Delimiter, length, opcode)
	buf = append(buf, payload...)
	buf = append(buf, Checksum(length, opcode, payload), Delimiter)
	return buf
}

// Parse validates a raw frame and returns its opcode and payload.  The
// payload slice aliases raw.  A frame failing any structural or checksum
// check is a communication error and must never reach the state machine.
func Parse(raw []byte) (opcode byte, payload []byte, err error) {
	if len(raw) < MinLength {
		return 0, nil, ErrFrameTooShort
	}
	if raw[0] != Delimiter || raw[len(raw)-1] != Delimiter {
		return 0, nil, ErrBadDelimiter
	}
	length := raw[1]
	if int(length) != len(raw)-2 {
		return 0, nil, ErrLengthMismatch
	}
	if int(length)-3 > MaxPayload {
		return 0, nil, ErrPayloadTooLarge
	}
	opcode = raw[2]
	payload = raw[3 : len(raw)-2]
	if Checksum(length, opcode, payload) != raw[len(raw)-2] {
		return 0, nil, ErrChecksumMismatch
	}
	return opcode, payload, nil
}
