// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateReturnsDistinctNonOverlappingRegions(t *testing.T) {
	a := New(256)
	bufs := make([][]byte, 20)
	for i := range bufs {
		bufs[i] = a.Allocate(8)
		for j, b := range bufs[i] {
			_ = b
			bufs[i][j] = byte(i)
		}
	}
	for i, b := range bufs {
		for _, v := range b {
			require.Equal(t, byte(i), v, "allocation %d was overwritten by a neighboring allocation", i)
		}
	}
}

func TestAllocateGrowsSharedChunksWhenExhausted(t *testing.T) {
	a := New(64)
	a.Allocate(60)
	require.Equal(t, 1, a.NumChunks())

	// The chunk has only 4 bytes left; this allocation must start a new one.
	a.Allocate(16)
	require.Equal(t, 2, a.NumChunks())
}

func TestAllocateAboveThresholdGetsDedicatedChunk(t *testing.T) {
	a := New(4096)
	a.Allocate(8)
	require.Equal(t, 1, a.NumChunks())

	a.Allocate(dedicatedThreshold + 1)
	require.Equal(t, 2, a.NumChunks())

	// A dedicated chunk isn't shared: the next small allocation still comes
	// out of the original chunk's leftover space, not a third chunk.
	a.Allocate(8)
	require.Equal(t, 2, a.NumChunks())
}

func TestMemoryUsageAccountsForOverhead(t *testing.T) {
	a := New(256)
	require.Zero(t, a.MemoryUsage())
	a.Allocate(10)
	require.Equal(t, int64(256+pointerOverhead), a.MemoryUsage())
}

func TestNewDefaultsChunkSize(t *testing.T) {
	a := New(0)
	a.Allocate(1)
	require.Equal(t, int64(minChunkSize+pointerOverhead), a.MemoryUsage())
}
