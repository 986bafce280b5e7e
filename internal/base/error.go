// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// The core reports failures through the small taxonomy of sentinel errors
// below rather than ad-hoc error strings, so that callers (and tests) can
// distinguish "the key is absent" from "the bytes on disk are damaged"
// with errors.Is.
var (
	// ErrNotFound means the requested entry (or a live version of it) is not
	// present. A deletion tombstone shadowing an older entry also surfaces
	// as ErrNotFound to a lookup.
	ErrNotFound = errors.New("pebble: not found")

	// ErrCorruption means the data read back does not match what was
	// written: a checksum mismatch, a truncated record header, an
	// out-of-order fragment, an undecodable varint or block handle, or a
	// footer with the wrong magic number.
	ErrCorruption = errors.New("pebble: corruption")

	// ErrNotSupported means the operation is well-formed but the format or
	// configuration it names is not implemented, e.g. an unrecognized
	// block compression type or a comparator name mismatch between an
	// open option and a persisted sstable.
	ErrNotSupported = errors.New("pebble: not supported")

	// ErrInvalidArgument means the caller asked for something the API
	// disallows outright, such as changing the comparator of an
	// already-populated store.
	ErrInvalidArgument = errors.New("pebble: invalid argument")
)

// CorruptionErrorf formats an error wrapping ErrCorruption, in the manner of
// errors.Newf elsewhere in the corpus.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorruption, format, args...)
}

// NotSupportedErrorf formats an error wrapping ErrNotSupported.
func NotSupportedErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotSupported, format, args...)
}

// MarkCorrupted marks the given error as an ErrCorruption without discarding
// its message, letting corruption information from other packages (e.g. an
// I/O error observed while reading a block) participate in errors.Is checks.
func MarkCorrupted(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruptionError reports whether err (or something it wraps) is an
// ErrCorruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}
