// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	infos []string
}

func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func TestLoggingReporterLogsThroughInfof(t *testing.T) {
	logger := &recordingLogger{}
	reporter := LoggingReporter(logger)

	reporter.Report(12, errors.New("checksum mismatch"))

	require.Len(t, logger.infos, 1)
	require.Contains(t, logger.infos[0], "12")
	require.Contains(t, logger.infos[0], "checksum mismatch")
}
