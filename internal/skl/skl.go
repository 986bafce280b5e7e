// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package skl implements the concurrent skiplist spec §4.3 describes: many
// readers may run concurrently with a single writer without taking a lock,
// forward pointers are published with release semantics and read with
// acquire semantics, and node height is chosen geometrically (branching
// probability 1/4, capped at 12 levels).
//
// The corpus's arenaskl package builds nodes by placing them at raw byte
// offsets inside one fixed-size arena buffer and linking levels with
// atomic.Uint32 offsets, so that a node reference is a 4-byte value
// suitable for storing inside another node. That trick exists to keep nodes
// compact and to let the arena be memory-mapped; this store's arena
// (internal/arena) is a growable list of independently-allocated chunks
// with no global offset space, and nothing here needs to be mmap-friendly.
// So nodes here are ordinary Go values linked with atomic.Pointer[node],
// which gives the same release/acquire publication guarantee arenaskl gets
// from its offset stores, while letting the Go runtime manage node
// lifetime. The arena is still where every key and value's backing bytes
// live: a node only ever holds a slice view into arena-owned storage, and
// the whole graph of nodes becomes unreachable together when the memtable
// that owns the arena is dropped.
package skl

import (
	"math/rand"
	"sync/atomic"
)

const (
	maxHeight  = 12
	branchingP = 4 // P(height increases by one more level) == 1/branchingP
)

// Comparer orders two keys, as bytes.Compare does.
type Comparer func(a, b []byte) int

type node struct {
	key  []byte
	next [maxHeight]atomic.Pointer[node]
}

func (n *node) loadNext(h int) *node  { return n.next[h].Load() }
func (n *node) storeNext(h int, v *node) { n.next[h].Store(v) }

// Skiplist is an ordered set of unique keys. Insert must not be called
// concurrently with itself or with another Insert (spec §5: the memtable
// enforces single-writer discipline); Contains and all Iterators may run
// concurrently with a single in-flight Insert and with each other.
type Skiplist struct {
	cmp    Comparer
	rnd    *rand.Rand
	head   node
	height atomic.Int32 // current max populated level, 0-indexed count
}

// New creates an empty Skiplist ordered by cmp. seed makes the level
// selection reproducible for tests; production callers should derive it
// from crypto/rand or time.
func New(cmp Comparer, seed int64) *Skiplist {
	s := &Skiplist{cmp: cmp, rnd: rand.New(rand.NewSource(seed))}
	s.height.Store(1)
	return s
}

func (s *Skiplist) randomHeight() int {
	h := 1
	for h < maxHeight && s.rnd.Intn(branchingP) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual walks down from the head, returning the first node
// whose key is >= key (or nil at the tail), and optionally recording, at
// each level, the last node visited before it (the splice point Insert
// needs).
func (s *Skiplist) findGreaterOrEqual(key []byte, prev *[maxHeight]*node) *node {
	x := &s.head
	level := int(s.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil && s.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// findLessThan returns the last node in the list whose key is < key, or
// the head sentinel if none.
func (s *Skiplist) findLessThan(key []byte) *node {
	x := &s.head
	level := int(s.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil && s.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// findLast returns the last node in the list, or the head sentinel if
// empty.
func (s *Skiplist) findLast() *node {
	x := &s.head
	level := int(s.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// Insert adds key to the list. key's backing array is retained by
// reference: callers must pass arena-owned, never-mutated-again storage
// (the memtable's entry encoding guarantees this). Keys must be unique
// under cmp; the memtable guarantees this by embedding a distinct,
// monotonically increasing sequence number in every internal key it inserts.
func (s *Skiplist) Insert(key []byte) {
	var prev [maxHeight]*node
	s.findGreaterOrEqual(key, &prev)

	height := s.randomHeight()
	if curHeight := int(s.height.Load()); height > curHeight {
		for i := curHeight; i < height; i++ {
			prev[i] = &s.head
		}
		s.height.Store(int32(height))
	}

	n := &node{key: key}
	for i := 0; i < height; i++ {
		n.storeNext(i, prev[i].loadNext(i))
		prev[i].storeNext(i, n) // release-publishes n at level i
	}
}

// Contains reports whether key is present.
func (s *Skiplist) Contains(key []byte) bool {
	n := s.findGreaterOrEqual(key, nil)
	return n != nil && s.cmp(n.key, key) == 0
}

// Iterator supports forward and backward traversal. A zero Iterator is not
// usable; construct one with Skiplist.NewIterator.
type Iterator struct {
	list *Skiplist
	n    *node
}

// NewIterator returns an unpositioned Iterator over s.
func (s *Skiplist) NewIterator() *Iterator {
	return &Iterator{list: s}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.n != nil }

// Key returns the key at the current position. Valid must be true.
func (it *Iterator) Key() []byte { return it.n.key }

// Next advances to the next entry, in ascending key order.
func (it *Iterator) Next() { it.n = it.n.loadNext(0) }

// Prev retreats to the previous entry. Nodes have no back-pointers (spec
// §4.3), so this re-finds the predecessor with a forward search from the
// head, matching arenaskl.Iterator.Prev.
func (it *Iterator) Prev() {
	it.n = it.list.findLessThan(it.n.key)
	if it.n == &it.list.head {
		it.n = nil
	}
}

// SeekGE positions the iterator at the first entry >= key.
func (it *Iterator) SeekGE(key []byte) {
	it.n = it.list.findGreaterOrEqual(key, nil)
}

// SeekLT positions the iterator at the last entry < key.
func (it *Iterator) SeekLT(key []byte) {
	n := it.list.findLessThan(key)
	if n == &it.list.head {
		it.n = nil
		return
	}
	it.n = n
}

// First positions the iterator at the first entry in the list.
func (it *Iterator) First() {
	it.n = it.list.head.loadNext(0)
}

// Last positions the iterator at the last entry in the list.
func (it *Iterator) Last() {
	n := it.list.findLast()
	if n == &it.list.head {
		it.n = nil
		return
	}
	it.n = n
}
