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

package config

import (
	"io"
	"os"
	"strings"
)

// Source supplies the configuration text.  Lookup rescans the source,
// so OpenForRead may be called many times for the same name.
type Source interface {
	OpenForRead(name string) (io.ReadCloser, error)
}

// FileSource reads configuration files from the filesystem
type FileSource struct{}

// OpenForRead opens the named file for reading
func (FileSource) OpenForRead(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// StringSource serves a single in-memory document under any name.
// Intended for tests.
type StringSource string

// OpenForRead returns a reader over the document
func (s StringSource) OpenForRead(_ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}
