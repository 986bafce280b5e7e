// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

import "sync"

// entry is one cached block. It belongs to at most one of a shard's two
// lists at a time: lru (referenced only by the cache itself) or inUse
// (referenced by at least one live Handle), tracked by inCache/refs exactly
// as LRUHandle does. A single next/prev pair is reused across both lists
// since an entry is never in both at once.
type entry struct {
	key   Key
	value []byte
	// charge is the byte cost Insert was told to account against the
	// shard's capacity; it need not equal len(value).
	charge int64
	hash   uint64

	refs    int32
	inCache bool

	next, prev *entry
	// hashNext chains entries within a handleTable bucket.
	hashNext *entry
}

// shard is one independently-locked partition of a Cache, following
// LRUCache: a hash table for O(1) lookup plus the two intrusive lists that
// implement the two-queue eviction policy. The teacher's cache/cache.go
// list is a single-queue variant of the same intrusive-list idiom; this
// generalizes it to the two-queue design so referenced entries survive
// eviction pressure.
type shard struct {
	mu sync.Mutex

	capacity int64
	usage    int64

	table *handleTable

	// lru is the dummy head of the not-in-use list; lru.prev is newest,
	// lru.next is oldest and the next eviction candidate.
	lru entry
	// inUse is the dummy head of the list of entries with a live Handle.
	inUse entry
}

func newShard(capacity int64) *shard {
	s := &shard{capacity: capacity, table: newHandleTable()}
	s.lru.next, s.lru.prev = &s.lru, &s.lru
	s.inUse.next, s.inUse.prev = &s.inUse, &s.inUse
	return s
}

func listRemove(e *entry) {
	e.next.prev = e.prev
	e.prev.next = e.next
	e.next, e.prev = nil, nil
}

// listAppend inserts e immediately before list, i.e. as the newest entry.
func listAppend(list, e *entry) {
	e.next = list
	e.prev = list.prev
	e.prev.next = e
	e.next.prev = e
}

// ref records a new reference on e, promoting it from lru to inUse the
// first time its refcount rises above 1 while cached.
func (s *shard) ref(e *entry) {
	if e.refs == 1 && e.inCache {
		listRemove(e)
		listAppend(&s.inUse, e)
	}
	e.refs++
}

// unref drops a reference, freeing e once nothing (including the cache
// itself) references it any longer, or demoting it back to lru once only
// the cache's own reference remains.
func (s *shard) unref(e *entry) {
	e.refs--
	switch {
	case e.refs == 0:
		e.value = nil
	case e.inCache && e.refs == 1:
		listRemove(e)
		listAppend(&s.lru, e)
	}
}

// finishErase drops e from whichever list holds it and releases the
// cache's reference; e must already have been removed from s.table by the
// caller.
func (s *shard) finishErase(e *entry) bool {
	if e == nil {
		return false
	}
	listRemove(e)
	e.inCache = false
	s.usage -= e.charge
	s.unref(e)
	return true
}

func (s *shard) insert(hash uint64, key Key, value []byte, charge int64) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{key: key, hash: hash, value: value, charge: charge, refs: 1, inCache: false}

	if s.capacity > 0 {
		e.refs++
		e.inCache = true
		listAppend(&s.inUse, e)
		s.usage += charge
		s.finishErase(s.table.insert(e))
	}

	for s.usage > s.capacity && s.lru.next != &s.lru {
		oldest := s.lru.next
		s.finishErase(s.table.remove(oldest.hash, oldest.key))
	}
	return &Handle{e: e}
}

func (s *shard) lookup(hash uint64, key Key) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.table.lookup(hash, key)
	if e == nil {
		return nil
	}
	s.ref(e)
	return &Handle{e: e}
}

func (s *shard) release(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unref(h.e)
}

func (s *shard) erase(hash uint64, key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishErase(s.table.remove(hash, key))
}

func (s *shard) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.lru.next != &s.lru {
		e := s.lru.next
		s.finishErase(s.table.remove(e.hash, e.key))
	}
}

func (s *shard) totalCharge() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
