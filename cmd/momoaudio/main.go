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

// Command momoaudio runs the audio half of the animal monitoring
// station on a Linux host: it drives the FN-RM01 recorder module over
// a serial port and reacts to transponder IDs read on standard input,
// one per line.  An empty line stands for a detection timeout (no
// transponder found).
//
// Usage:
//
//	momoaudio [-settings momoaudio.yaml] [-now]
//
// The -now flag powers the station on immediately instead of waiting
// for the configured ON_TIME_1 alarm.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/peterloes/momoaudio"
	"github.com/peterloes/momoaudio/config"
	"github.com/peterloes/momoaudio/control"
	"github.com/peterloes/momoaudio/transport/uart"
)

func main() {
	settingsPath := flag.String("settings", "momoaudio.yaml", "settings file")
	startNow := flag.Bool("now", false, "power on immediately, ignore ON_TIME_1")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if err := run(*settingsPath, *startNow, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "momoaudio: %v\n", err)
		os.Exit(1)
	}
}

func run(settingsPath string, startNow, verbose bool) error {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	logger := newLogger(settings, verbose)
	logger.Info("starting", "port", settings.Port, "config", settings.ConfigFile)

	transport, err := uart.New(settings.Port,
		uart.WithBaudRate(settings.BaudRate), uart.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = transport.Close() }()

	engine, err := momoaudio.New(transport, momoaudio.WithLogger(logger))
	if err != nil {
		return err
	}

	var sched *scheduler
	store := config.NewStore(config.FileSource{}, logger, setterFunc{
		set:     func(alarm, hour, minute int) { sched.Set(alarm, hour, minute) },
		disable: func(alarm int) { sched.Disable(alarm) },
	})
	store.SetDST(settings.DST)

	ctrl, err := control.New(store, engine, logOutputs{logger},
		control.WithLogger(logger))
	if err != nil {
		return err
	}
	sched = newScheduler(logger, ctrl.AlarmTriggered)
	defer sched.Stop()

	// loading the configuration programs the on/off alarms
	if err := ctrl.LoadConfig(settings.ConfigFile); err != nil {
		logger.Error("running with defaults only", "error", err)
	}
	if startNow {
		ctrl.AlarmTriggered(control.AlarmOn)
	}

	ids := make(chan string)
	go readDetections(ids)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case id, ok := <-ids:
			if !ok {
				logger.Info("input closed, shutting down")
				ctrl.AlarmTriggered(control.AlarmOff)
				return nil
			}
			ctrl.OnTransponderDetected(id)
		case sig := <-sigs:
			logger.Info("signal received, shutting down", "signal", sig.String())
			ctrl.AlarmTriggered(control.AlarmOff)
			return nil
		}
	}
}

// readDetections forwards transponder IDs from standard input
func readDetections(ids chan<- string) {
	defer close(ids)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		ids <- strings.TrimSpace(scanner.Text())
	}
}

// newLogger builds the station log: text to stderr, or a rotated file
func newLogger(settings Settings, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if settings.LogFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(&lumberjack.Logger{
		Filename:   settings.LogFile,
		MaxSize:    settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
	}, opts))
}

// setterFunc adapts two closures to config.AlarmSetter; the scheduler
// is created after the store, so the calls go through indirections
type setterFunc struct {
	set     func(alarm, hour, minute int)
	disable func(alarm int)
}

func (s setterFunc) Set(alarm, hour, minute int) { s.set(alarm, hour, minute) }
func (s setterFunc) Disable(alarm int)           { s.disable(alarm) }

// logOutputs stands in for the GPIO power rails on a development host
type logOutputs struct {
	log *slog.Logger
}

func (o logOutputs) Set(out control.Output, on bool) {
	o.log.Info("power output switched", "output", out.String(), "on", on)
}

func (logOutputs) IsOn(control.Output) bool { return false }
