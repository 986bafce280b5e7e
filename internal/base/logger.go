// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"fmt"
	"log"
	"os"
)

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements the Logger.Infof interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// Fatalf implements the Logger.Fatalf interface.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// LoggingReporter adapts a Logger to a CorruptionReporter by logging each
// report through Infof, the way recovery.go logs WAL replay outcomes
// through opts.Logger rather than dropping them. It is the reporter WAL
// replay tools should default to when the caller has no reporter of its
// own but does have an Options.Logger.
func LoggingReporter(logger Logger) CorruptionReporter {
	return CorruptionReporterFunc(func(dropped int64, err error) {
		logger.Infof("wal: dropped %d bytes: %v", dropped, err)
	})
}
