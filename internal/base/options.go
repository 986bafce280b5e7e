// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

// Default tunables, named the way spec §4 calls them out.
const (
	// DefaultArenaChunkSize is the size of a freshly allocated arena chunk
	// for allocations that don't warrant their own dedicated chunk.
	DefaultArenaChunkSize = 4096
	// ArenaDedicatedChunkThreshold is the allocation size above which the
	// arena gives the request its own exactly-sized chunk instead of
	// carving it out of (or growing) the shared chunk, avoiding waste.
	ArenaDedicatedChunkThreshold = 1024

	// DefaultRestartInterval is the number of block entries between
	// prefix-compression restart points.
	DefaultRestartInterval = 16
	// IndexRestartInterval is always 1: every index entry is its own
	// restart point, since index blocks are small and rarely iterated
	// densely enough for prefix compression to pay for itself.
	IndexRestartInterval = 1

	// DefaultBlockSize is the target uncompressed size of an sstable data
	// block before it is flushed.
	DefaultBlockSize = 4096

	// DefaultFilterBitsPerKey is the default Bloom filter density.
	DefaultFilterBitsPerKey = 10

	// FilterBaseLog2 is log2 of the filter block's byte stride: a new
	// filter partition boundary falls every 1<<FilterBaseLog2 bytes of
	// data blocks written so far.
	FilterBaseLog2 = 11
	// FilterBase is 1<<FilterBaseLog2, i.e. 2 KiB.
	FilterBase = 1 << FilterBaseLog2

	// WALBlockSize is the fixed physical block size of the write-ahead log.
	WALBlockSize = 32 * 1024

	// DefaultCacheShards is the number of independent shards the block
	// cache partitions its capacity and locking across.
	DefaultCacheShards = 16
)

// Options collects every tunable and pluggable collaborator spec §4 and §6
// name, following the shape of options.go in the teacher repo: a single
// struct with an EnsureDefaults method rather than functional options,
// since the core has no need for the extra indirection.
type Options struct {
	// Comparer orders user keys. Changing it for an existing store is an
	// InvalidArgument (spec §7); the core does not attempt to detect this
	// itself since it has no persistent option store, but Open checks
	// tables' recorded comparer name against Comparer.Name.
	Comparer *Comparer

	// FilterPolicy builds and probes per-block filters. Nil disables
	// filters entirely.
	FilterPolicy FilterPolicy

	// FilterBitsPerKey is a Bloom filter density setting. EnsureDefaults
	// fills it in with DefaultFilterBitsPerKey but does not create a
	// FilterPolicy from it: a nil FilterPolicy stays nil.
	FilterBitsPerKey int

	// Compression selects the sstable block compression algorithm.
	Compression Compression

	// BlockSize is the target uncompressed data block size.
	BlockSize int

	// BlockRestartInterval is the number of entries between block restart
	// points.
	BlockRestartInterval int

	// ArenaChunkSize sizes non-dedicated memtable arena chunks.
	ArenaChunkSize int

	// CacheSize is the sharded block cache's total capacity in bytes.
	CacheSize int64

	// CacheShards is the number of independent cache shards.
	CacheShards int

	// Logger receives corruption reports and diagnostic messages.
	Logger Logger
}

// EnsureDefaults fills in the zero-valued fields of o with the package
// defaults and returns o, matching the teacher's Options.EnsureDefaults.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Comparer == nil {
		o.Comparer = DefaultComparer
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = DefaultRestartInterval
	}
	if o.ArenaChunkSize <= 0 {
		o.ArenaChunkSize = DefaultArenaChunkSize
	}
	if o.FilterBitsPerKey <= 0 {
		o.FilterBitsPerKey = DefaultFilterBitsPerKey
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 8 << 20
	}
	if o.CacheShards <= 0 {
		o.CacheShards = DefaultCacheShards
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}
