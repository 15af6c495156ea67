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
	"log/slog"
	"sync"
	"time"
)

// scheduler fires the station on/off alarms at their configured wall
// clock times, once per day.  It implements config.AlarmSetter, so the
// configuration loader programs it directly while parsing ON_TIME_1
// and OFF_TIME_1.
type scheduler struct {
	log     *slog.Logger
	trigger func(alarm int)

	mu     sync.Mutex
	timers map[int]*time.Timer
}

func newScheduler(log *slog.Logger, trigger func(alarm int)) *scheduler {
	return &scheduler{
		log:     log,
		trigger: trigger,
		timers:  make(map[int]*time.Timer),
	}
}

// Set programs the alarm for the next occurrence of hour:minute and
// reschedules it every 24 hours after firing.
func (s *scheduler) Set(alarm, hour, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(alarm)

	next := nextOccurrence(time.Now(), hour, minute)
	s.log.Info("alarm programmed", "alarm", alarm,
		"time", next.Format("15:04"), "in", time.Until(next).Round(time.Second))
	s.timers[alarm] = time.AfterFunc(time.Until(next), func() {
		s.fire(alarm, hour, minute)
	})
}

// Disable cancels the alarm
func (s *scheduler) Disable(alarm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(alarm)
}

// Stop cancels all alarms
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for alarm := range s.timers {
		s.stopLocked(alarm)
	}
}

func (s *scheduler) stopLocked(alarm int) {
	if t, ok := s.timers[alarm]; ok {
		t.Stop()
		delete(s.timers, alarm)
	}
}

func (s *scheduler) fire(alarm, hour, minute int) {
	s.trigger(alarm)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[alarm]; !ok {
		return // disabled while firing
	}
	next := nextOccurrence(time.Now(), hour, minute)
	s.timers[alarm] = time.AfterFunc(time.Until(next), func() {
		s.fire(alarm, hour, minute)
	})
}

// nextOccurrence returns the next wall clock instant of hour:minute
// strictly after now
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
