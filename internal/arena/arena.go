// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package arena implements the bump-pointer allocator spec §4.1 describes:
// a list of growable chunks serving allocations in amortized O(1), freed
// only when the whole Arena is dropped. It is grounded on
// arenaskl/arena.go's atomic bump-pointer style, generalized from that
// file's single fixed-size buffer to the growable chunk list spec §4.1
// calls for (memtables here are unbounded rather than capacity-limited, so
// a fixed buffer that can fail allocation is the wrong shape).
package arena

import (
	"sync/atomic"
	"unsafe"
)

const (
	// minChunkSize is the smallest chunk the arena will allocate on its
	// own initiative; spec §4.1 names this 4096.
	minChunkSize = 4096
	// dedicatedThreshold is the allocation size above which a request gets
	// its own exactly-sized chunk rather than sharing (and wasting) a
	// larger shared chunk.
	dedicatedThreshold = 1024
	// pointerOverhead approximates the bookkeeping cost memory_usage
	// attributes to each chunk header, per spec §4.1's "plus pointer
	// overhead".
	pointerOverhead = 16
)

// Arena is a bump-pointer byte allocator. Allocate and AllocateAligned are
// safe to call only from a single goroutine at a time (the memtable's
// single-writer discipline, spec §5); MemoryUsage may be read concurrently
// from any goroutine without external synchronization.
type Arena struct {
	chunkSize int
	chunks    [][]byte
	cur       []byte // remaining, unallocated suffix of the current chunk
	usage     int64  // atomic
}

// New creates an Arena that grows shared chunks of chunkSize bytes (or
// spec's default minChunkSize if chunkSize <= 0).
func New(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = minChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

// Allocate returns n bytes of uninitialized storage with no alignment
// requirement beyond Go's natural byte-slice alignment.
func (a *Arena) Allocate(n int) []byte {
	return a.allocate(n, 1)
}

// AllocateAligned returns n bytes of storage aligned to max(8, pointer
// size), per spec §4.1.
func (a *Arena) AllocateAligned(n int) []byte {
	return a.allocate(n, 8)
}

func (a *Arena) allocate(n, align int) []byte {
	if n > dedicatedThreshold {
		chunk := make([]byte, n)
		a.chunks = append(a.chunks, chunk)
		atomic.AddInt64(&a.usage, int64(n+pointerOverhead))
		return chunk
	}

	// Alignment is measured against the address of the next free byte.
	if pad := padding(int(uintptr(unsafe.Pointer(unsafe.SliceData(a.cur)))), align); len(a.cur) >= pad+n {
		buf := a.cur[pad : pad+n]
		a.cur = a.cur[pad+n:]
		return buf
	}

	size := a.chunkSize
	if size < n {
		size = n
	}
	chunk := make([]byte, size)
	a.chunks = append(a.chunks, chunk)
	atomic.AddInt64(&a.usage, int64(size+pointerOverhead))

	pad := padding(0, align)
	buf := chunk[pad : pad+n]
	a.cur = chunk[pad+n:]
	return buf
}

func padding(offset, align int) int {
	if align <= 1 {
		return 0
	}
	if r := offset % align; r != 0 {
		return align - r
	}
	return 0
}

// MemoryUsage reports the total bytes allocated from the Go heap by this
// arena, including per-chunk bookkeeping overhead. It is safe to call
// concurrently with Allocate/AllocateAligned; the result may be stale by up
// to one in-flight allocation (spec §4.1's "eventual-consistency on counter
// reads is acceptable").
func (a *Arena) MemoryUsage() int64 {
	return atomic.LoadInt64(&a.usage)
}

// NumChunks reports how many chunks have been allocated so far, mostly
// useful for tests asserting the dedicated-chunk and growth thresholds.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}
