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

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the station-local setup: everything that is not part of
// the animal configuration file itself.
type Settings struct {
	// Port is the serial port the audio module is attached to
	Port string `yaml:"port"`
	// BaudRate for the audio module link
	BaudRate int `yaml:"baud_rate"`
	// ConfigFile is the animal configuration file (IDs, durations,
	// on/off times)
	ConfigFile string `yaml:"config_file"`
	// LogFile receives the structured log; empty logs to stderr
	LogFile string `yaml:"log_file"`
	// LogMaxSizeMB rotates the log file when it grows past this size
	LogMaxSizeMB int `yaml:"log_max_size_mb"`
	// LogMaxBackups bounds the number of rotated log files kept
	LogMaxBackups int `yaml:"log_max_backups"`
	// DST shifts configured on/off times one hour forward
	DST bool `yaml:"dst"`
}

func defaultSettings() Settings {
	return Settings{
		Port:          "/dev/ttyS0",
		BaudRate:      9600,
		ConfigFile:    "CONFIG.TXT",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
	}
}

// loadSettings reads the YAML settings file; a missing file yields the
// defaults.
func loadSettings(path string) (Settings, error) {
	s := defaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	if s.Port == "" {
		return s, fmt.Errorf("settings: port must not be empty")
	}
	if s.BaudRate <= 0 {
		return s, fmt.Errorf("settings: baud_rate must be positive")
	}
	return s, nil
}
