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

// Package config parses the line-oriented configuration file into a
// registered table of typed variables and a queryable set of
// transponder ID records.
//
// Each non-blank, non-comment line has the form
//
//	NAME = VALUE   # optional comment
//
// Malformed lines are logged and skipped; a load never fails on
// syntax.  Only the reserved ANY and UNKNOWN ID records are kept in
// memory after a load.  All other transponder IDs are found by
// rescanning the source on demand, which keeps memory use independent
// of how many animals are registered.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Reserved ID tokens
const (
	TokenAny     = "ANY"     // transponder detected but not listed
	TokenUnknown = "UNKNOWN" // no transponder detected before timeout
)

// Unset marks an ID record field that was left empty
const Unset = -1

// ErrNotFound is returned by Lookup when no record exists for a token
var ErrNotFound = errors.New("config: ID record not found")

// Kind selects how a variable's value literal is parsed
type Kind int

// Variable kinds
const (
	KindTimeOfDay Kind = iota // HH:MM, forwarded to the alarm scheduler
	KindDuration              // unsigned seconds
	KindInteger               // unsigned integer with a lower bound
	KindEnum                  // bare name from a fixed table, stored as index
	KindID                    // ID record line
)

// TimeOfDay is the bound value of a KindTimeOfDay variable.  Enabled
// is false until a load assigns the variable.
type TimeOfDay struct {
	Hour    int
	Minute  int
	Enabled bool
}

// Variable describes one registered configuration variable.  Bind
// points at the caller-owned storage cell: *int for KindDuration,
// KindInteger and KindEnum, *TimeOfDay for KindTimeOfDay, nil for
// KindID.
type Variable struct {
	Bind    any
	Name    string
	Enum    []string
	Kind    Kind
	Min     int
	Default int
	Alarm   int
}

// IDRecord is one parsed ID line.  Fields left empty in the file hold
// Unset and are resolved to defaults by the caller, not here.
type IDRecord struct {
	ID           string
	KeepPlayback int
	KeepRecord   int
	PlayType     int
}

// AlarmSetter receives the time-of-day variables as they are parsed
type AlarmSetter interface {
	Set(alarm, hour, minute int)
	Disable(alarm int)
}

// Store holds the variable table and the retained reserved records
type Store struct {
	log      *slog.Logger
	alarms   AlarmSetter
	source   Source
	byName   map[string]*Variable
	reserved map[string]IDRecord
	name     string
	vars     []Variable
	idCount  int
	dst      bool
}

// NewStore creates a store reading from source.  A nil logger
// discards log output; a nil alarms drops time-of-day assignments.
func NewStore(source Source, log *slog.Logger, alarms AlarmSetter) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		log:      log,
		alarms:   alarms,
		source:   source,
		reserved: make(map[string]IDRecord),
	}
}

// SetDST sets the daylight-saving flag.  While set, parsed
// time-of-day values are shifted one hour forward, wrapping 23 to 0.
func (s *Store) SetDST(dst bool) {
	s.dst = dst
}

// Register installs the variable table.  Must be called exactly once
// before the first Load; the slice is copied.
func (s *Store) Register(vars []Variable) {
	if s.byName != nil {
		panic("config: Register called twice")
	}
	s.vars = make([]Variable, len(vars))
	copy(s.vars, vars)
	s.byName = make(map[string]*Variable, len(vars))
	for i := range s.vars {
		s.byName[s.vars[i].Name] = &s.vars[i]
	}
}

// Clear resets every bound variable to its default and discards the
// retained ID records.  Variables absent from the next file must not
// keep values from the previous one.
func (s *Store) Clear() {
	for i := range s.vars {
		v := &s.vars[i]
		switch v.Kind {
		case KindTimeOfDay:
			if tod, ok := v.Bind.(*TimeOfDay); ok && tod != nil {
				*tod = TimeOfDay{}
			}
			if s.alarms != nil {
				s.alarms.Disable(v.Alarm)
			}
		case KindDuration, KindInteger, KindEnum:
			if cell, ok := v.Bind.(*int); ok && cell != nil {
				*cell = v.Default
			}
		case KindID:
			// no bound cell
		}
	}
	s.reserved = make(map[string]IDRecord)
	s.idCount = 0
}

// Load clears the store and parses the named configuration file.
// Syntax errors are logged per line and the line skipped; only an
// unreadable source fails the load, leaving the cleared defaults in
// place.
func (s *Store) Load(name string) error {
	if s.byName == nil {
		panic("config: Load before Register")
	}
	s.Clear()
	s.name = name

	r, err := s.source.OpenForRead(name)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		name, value, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}
		s.assign(lineNo, name, value)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read %s: %w", name, err)
	}
	s.log.Info("configuration loaded", "file", name, "ids", s.idCount)
	s.dump()
	return nil
}

// dump logs every registered variable's current value
func (s *Store) dump() {
	for i := range s.vars {
		v := &s.vars[i]
		switch v.Kind {
		case KindTimeOfDay:
			if tod, ok := v.Bind.(*TimeOfDay); ok && tod != nil && tod.Enabled {
				s.log.Debug("variable", "name", v.Name,
					"value", fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute))
			}
		case KindDuration, KindInteger:
			if cell, ok := v.Bind.(*int); ok && cell != nil {
				s.log.Debug("variable", "name", v.Name, "value", *cell)
			}
		case KindEnum:
			if cell, ok := v.Bind.(*int); ok && cell != nil &&
				*cell >= 0 && *cell < len(v.Enum) {
				s.log.Debug("variable", "name", v.Name, "value", v.Enum[*cell])
			}
		case KindID:
			s.log.Debug("variable", "name", v.Name, "records", s.idCount)
		}
	}
}

// Lookup returns the record for a transponder token.  ANY and UNKNOWN
// are served from memory; any other token triggers a rescan of the
// source from the top, returning the first matching ID line.
func (s *Store) Lookup(token string) (IDRecord, error) {
	if token == TokenAny || token == TokenUnknown {
		rec, ok := s.reserved[token]
		if !ok {
			return IDRecord{}, ErrNotFound
		}
		return rec, nil
	}
	if s.name == "" {
		return IDRecord{}, ErrNotFound
	}

	r, err := s.source.OpenForRead(s.name)
	if err != nil {
		return IDRecord{}, fmt.Errorf("config: open %s: %w", s.name, err)
	}
	defer func() { _ = r.Close() }()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		name, value, ok := splitLine(scanner.Text())
		if !ok || name != "ID" {
			continue
		}
		rec, err := parseIDValue(value)
		if err != nil {
			continue // already reported during Load
		}
		if rec.ID == token {
			return rec, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return IDRecord{}, fmt.Errorf("config: read %s: %w", s.name, err)
	}
	return IDRecord{}, ErrNotFound
}

// IDCount returns the number of valid ID lines seen by the last Load
func (s *Store) IDCount() int {
	return s.idCount
}

// splitLine strips comments and whitespace and splits NAME = VALUE.
// ok is false for blank and comment lines and for lines without '='.
func splitLine(line string) (name, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	name, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), true
}

// assign parses one NAME = VALUE pair into its registered variable
func (s *Store) assign(lineNo int, name, value string) {
	v, ok := s.byName[name]
	if !ok {
		s.log.Error("unknown configuration variable",
			"line", lineNo, "name", name)
		return
	}
	if value == "" {
		s.log.Error("missing value", "line", lineNo, "name", name)
		return
	}

	switch v.Kind {
	case KindTimeOfDay:
		s.assignTimeOfDay(lineNo, v, value)
	case KindDuration:
		n, err := parseUnsigned(value)
		if err != nil {
			s.log.Error("invalid duration",
				"line", lineNo, "name", name, "value", value)
			return
		}
		*v.Bind.(*int) = n
	case KindInteger:
		n, err := parseUnsigned(value)
		if err != nil || n < v.Min {
			s.log.Error("invalid integer",
				"line", lineNo, "name", name, "value", value, "min", v.Min)
			return
		}
		*v.Bind.(*int) = n
	case KindEnum:
		idx := -1
		for i, choice := range v.Enum {
			if value == choice {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.log.Error("unknown choice",
				"line", lineNo, "name", name, "value", value)
			return
		}
		*v.Bind.(*int) = idx
	case KindID:
		rec, err := parseIDValue(value)
		if err != nil {
			s.log.Error("invalid ID record",
				"line", lineNo, "value", value, "error", err)
			return
		}
		s.idCount++
		if rec.ID == TokenAny || rec.ID == TokenUnknown {
			s.reserved[rec.ID] = rec
		}
	}
}

func (s *Store) assignTimeOfDay(lineNo int, v *Variable, value string) {
	hs, ms, found := strings.Cut(value, ":")
	if !found {
		s.log.Error("invalid time", "line", lineNo, "name", v.Name, "value", value)
		return
	}
	hour, err1 := parseUnsigned(hs)
	minute, err2 := parseUnsigned(ms)
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		s.log.Error("invalid time", "line", lineNo, "name", v.Name, "value", value)
		return
	}
	if s.dst {
		hour = (hour + 1) % 24
	}
	if tod, ok := v.Bind.(*TimeOfDay); ok && tod != nil {
		*tod = TimeOfDay{Hour: hour, Minute: minute, Enabled: true}
	}
	if s.alarms != nil {
		s.alarms.Set(v.Alarm, hour, minute)
	}
}

// parseIDValue parses TOKEN[:playback][:record][:type].  Empty
// trailing fields mean Unset.
func parseIDValue(value string) (IDRecord, error) {
	fields := strings.Split(value, ":")
	if len(fields) > 4 {
		return IDRecord{}, errors.New("too many fields")
	}
	rec := IDRecord{
		ID:           strings.TrimSpace(fields[0]),
		KeepPlayback: Unset,
		KeepRecord:   Unset,
		PlayType:     Unset,
	}
	if rec.ID == "" {
		return IDRecord{}, errors.New("empty token")
	}
	for i, field := range fields[1:] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := parseUnsigned(field)
		if err != nil {
			return IDRecord{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		switch i {
		case 0:
			rec.KeepPlayback = n
		case 1:
			rec.KeepRecord = n
		case 2:
			if n < 1 || n > 9 {
				return IDRecord{}, fmt.Errorf("playback type %d out of range", n)
			}
			rec.PlayType = n
		}
	}
	return rec, nil
}

// parseUnsigned accepts decimal digits only, no sign, no whitespace
func parseUnsigned(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, errors.New("not an unsigned number")
	}
	return int(n), nil
}
