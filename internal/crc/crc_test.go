// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package crc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskRoundTrips(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello world"),
		make([]byte, 4096),
	} {
		c := New(b)
		require.Equal(t, c.Value(), Unmask(c.Mask()))
	}
}

func TestMaskIsNotTheIdentity(t *testing.T) {
	// A zeroed payload's raw CRC32C must not survive masking unchanged;
	// otherwise a preallocated, never-written region of a WAL file would
	// look like a validly checksummed zero-length record.
	c := New(make([]byte, 32))
	require.NotEqual(t, c.Value(), c.Mask())
}

func TestUpdateMatchesWholeInputChecksum(t *testing.T) {
	whole := New([]byte("hello world"))

	first := New([]byte("hello "))
	chained := Update(first.Value(), []byte("world"))

	require.Equal(t, whole, chained)
}
