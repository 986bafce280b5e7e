// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package cache implements the sharded block cache spec §5 describes: a
// fixed number of independently-locked LRUCache-equivalent shards, each
// keeping a not-in-use LRU list and an in-use list so entries a reader
// still holds a Handle on can never be evicted out from under it.
// Grounded on original_source/leveldb-master/util/cache.cc's LRUCache and
// ShardedLRUCache, with the intrusive-list idiom carried over from the
// teacher's cache/cache.go.
package cache

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"golang.org/x/sync/errgroup"
)

// Key identifies one cached block: the sstable it came from and its byte
// offset within that file, mirroring the (file, offset) pairs spec §5's
// block cache is keyed by.
type Key struct {
	FileNum uint64
	Offset  uint64
}

func (k Key) hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], k.FileNum)
	binary.LittleEndian.PutUint64(buf[8:], k.Offset)
	return xxhash.Sum64(buf[:])
}

// Handle is a live reference to a cached entry. Value stays valid only
// until Release is called; callers must not retain it past that point.
type Handle struct {
	e *entry
}

// Value returns the cached block's bytes, or nil if the Handle has already
// been released.
func (h *Handle) Value() []byte {
	if h == nil || h.e == nil {
		return nil
	}
	return h.e.value
}

// Cache is a sharded, reference-counted LRU cache of decoded sstable
// blocks. A shard is chosen by the high bits of the key's hash, following
// ShardedLRUCache::Shard.
type Cache struct {
	shards    []*shard
	shardBits uint
	metrics   *base.Metrics
	lastID    atomic.Uint64
}

// New creates a Cache with the given total capacity (in bytes charged by
// Insert) split evenly across numShards independent shards. numShards is
// rounded up to the next power of two, as Shard's bit-shift indexing
// requires.
func New(capacity int64, numShards int, metrics *base.Metrics) *Cache {
	if numShards < 1 {
		numShards = 1
	}
	bits := uint(0)
	for (1 << bits) < numShards {
		bits++
	}
	n := 1 << bits
	perShard := (capacity + int64(n) - 1) / int64(n)
	c := &Cache{shards: make([]*shard, n), shardBits: bits, metrics: metrics}
	for i := range c.shards {
		c.shards[i] = newShard(perShard)
	}
	return c
}

// shardFor picks a shard from the hash's high bits, following
// ShardedLRUCache::Shard.
func (c *Cache) shardFor(hash uint64) *shard {
	return c.shards[hash>>(64-c.shardBits)]
}

// Get looks up key, returning a Handle the caller must Release, or nil if
// key is not cached.
func (c *Cache) Get(key Key) *Handle {
	hash := key.hash()
	h := c.shardFor(hash).lookup(hash, key)
	if c.metrics != nil {
		if h != nil {
			c.metrics.CacheHits.Inc()
		} else {
			c.metrics.CacheMisses.Inc()
		}
	}
	return h
}

// Insert adds key/value to the cache, charged at charge bytes against its
// shard's capacity, evicting not-in-use entries as needed to stay under
// capacity. It returns a Handle the caller must Release.
func (c *Cache) Insert(key Key, value []byte, charge int64) *Handle {
	hash := key.hash()
	return c.shardFor(hash).insert(hash, key, value, charge)
}

// Release drops the caller's reference on h.
func (c *Cache) Release(h *Handle) {
	if h == nil || h.e == nil {
		return
	}
	c.shardFor(h.e.hash).release(h)
}

// Erase removes key from the cache. Any Handle already held on it remains
// valid until released, matching leveldb's Cache::Erase semantics.
func (c *Cache) Erase(key Key) {
	hash := key.hash()
	c.shardFor(hash).erase(hash, key)
}

// Prune evicts every not-in-use entry from every shard. Shards are pruned
// concurrently, since each guards its own lock and holds no reference to
// any other; a large cache with many shards would otherwise pay for a
// sequential walk of every shard's lru list under a single caller.
func (c *Cache) Prune() {
	var g errgroup.Group
	for _, s := range c.shards {
		s := s
		g.Go(func() error {
			s.prune()
			return nil
		})
	}
	_ = g.Wait()
}

// TotalCharge sums the charged bytes currently held across all shards.
func (c *Cache) TotalCharge() int64 {
	var total int64
	for _, s := range c.shards {
		total += s.totalCharge()
	}
	return total
}

// NewID returns a process-unique identifier suitable for namespacing keys
// belonging to a single sstable across cache lifetimes, mirroring
// Cache::NewId.
func (c *Cache) NewID() uint64 {
	return c.lastID.Add(1)
}
