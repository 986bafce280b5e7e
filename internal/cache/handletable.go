// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

// handleTable is a hand-rolled chaining hash table, directly grounded on
// original_source/leveldb-master/util/cache.cc's HandleTable: entries
// hashing to the same bucket are chained through hashNext, and the bucket
// array is doubled whenever the element count exceeds it, keeping the
// average chain length at or below one. A Go map would hide this resizing
// behavior spec §4.10/§8 calls out as a property of the cache itself.
type handleTable struct {
	buckets []*entry
	length  uint32
	elems   uint32
}

func newHandleTable() *handleTable {
	t := &handleTable{}
	t.resize()
	return t
}

func (t *handleTable) bucketFor(hash uint64) *entry {
	return t.buckets[uint32(hash)&(t.length-1)]
}

func (t *handleTable) lookup(hash uint64, key Key) *entry {
	e := t.bucketFor(hash)
	for e != nil && (e.hash != hash || e.key != key) {
		e = e.hashNext
	}
	return e
}

// insert links e into the table, replacing and returning any existing
// entry with the same hash and key (the caller is responsible for erasing
// the returned entry from its LRU list).
func (t *handleTable) insert(e *entry) *entry {
	idx := uint32(e.hash) & (t.length - 1)
	var prev *entry
	cur := t.buckets[idx]
	for cur != nil && (cur.hash != e.hash || cur.key != e.key) {
		prev = cur
		cur = cur.hashNext
	}

	if cur != nil {
		e.hashNext = cur.hashNext
	} else {
		e.hashNext = nil
	}
	if prev != nil {
		prev.hashNext = e
	} else {
		t.buckets[idx] = e
	}

	if cur == nil {
		t.elems++
		if t.elems > t.length {
			t.resize()
		}
	}
	return cur
}

func (t *handleTable) remove(hash uint64, key Key) *entry {
	idx := uint32(hash) & (t.length - 1)
	var prev *entry
	cur := t.buckets[idx]
	for cur != nil && (cur.hash != hash || cur.key != key) {
		prev = cur
		cur = cur.hashNext
	}
	if cur == nil {
		return nil
	}
	if prev != nil {
		prev.hashNext = cur.hashNext
	} else {
		t.buckets[idx] = cur.hashNext
	}
	cur.hashNext = nil
	t.elems--
	return cur
}

// resize grows the bucket array to the smallest power of two at least as
// large as the current element count and rehashes every entry into it.
func (t *handleTable) resize() {
	newLength := uint32(4)
	for newLength < t.elems {
		newLength *= 2
	}
	newBuckets := make([]*entry, newLength)
	var count uint32
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.hashNext
			idx := uint32(e.hash) & (newLength - 1)
			e.hashNext = newBuckets[idx]
			newBuckets[idx] = e
			e = next
			count++
		}
	}
	t.buckets = newBuckets
	t.length = newLength
}
