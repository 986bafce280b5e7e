// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

// CorruptionReporter is the collaborator interface spec §6 calls "Corruption
// reporter": the WAL reader invokes it with the number of bytes it dropped
// and the error describing why, rather than aborting the scan.
type CorruptionReporter interface {
	Report(dropped int64, err error)
}

// CorruptionReporterFunc adapts a plain function to CorruptionReporter.
type CorruptionReporterFunc func(dropped int64, err error)

// Report implements CorruptionReporter.
func (f CorruptionReporterFunc) Report(dropped int64, err error) { f(dropped, err) }
