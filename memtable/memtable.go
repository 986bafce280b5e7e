// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package memtable implements the in-memory table spec §4.4 describes: a
// typed façade over an arena-backed skiplist (internal/skl) whose entries
// are immutable once inserted and whose lookups return the newest entry
// visible at a given sequence number, distinguishing a live value from a
// deletion tombstone from an absent key.
package memtable

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cockroachdb/pebble-storage-core/internal/arena"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/skl"
)

// LookupResult classifies the outcome of Get.
type LookupResult int

const (
	// Missing means no entry for the user key exists at or below the
	// queried sequence number.
	Missing LookupResult = iota
	// Found means a live value was found.
	Found
	// Deleted means the newest visible entry is a tombstone.
	Deleted
)

// Memtable is a single-writer, many-reader ordered map from internal key to
// value, backed by an Arena that is freed in its entirety when the
// Memtable becomes unreachable.
//
// Per spec §4.4 a Memtable is reference counted and moves through two
// states: active (the sole target of Add) and immutable (queued for
// flush, read-only from then on). New starts a Memtable with one
// reference, held by whichever caller created it (typically the table
// that owns the active memtable); MarkImmutable and the flush consumer's
// own Ref/Unref pair keep it alive until every reader is done with it,
// mirroring mem_table.go's ref/unref/readyForFlush.
type Memtable struct {
	cmp   *base.InternalKeyComparer
	arena *arena.Arena
	skl   *skl.Skiplist

	refs      atomic.Int32
	immutable atomic.Bool
}

// New creates an empty, active Memtable with one reference held by the
// caller. seed seeds the skiplist's level-selection RNG (see
// internal/skl.New).
func New(cmp *base.InternalKeyComparer, arenaChunkSize int, seed int64) *Memtable {
	m := &Memtable{
		cmp:   cmp,
		arena: arena.New(arenaChunkSize),
	}
	m.skl = skl.New(m.entryCompare, seed)
	m.refs.Store(1)
	return m
}

// Ref adds a reference, e.g. for an iterator that will outlive the caller's
// own reference.
func (m *Memtable) Ref() {
	m.refs.Add(1)
}

// Unref releases a reference, reporting whether that was the last one. A
// Memtable is not reclaimed by Unref itself; callers use the true return
// to know it is safe to drop their last pointer to it (and, for the flush
// consumer, that no other reader can still be iterating it).
func (m *Memtable) Unref() bool {
	switch v := m.refs.Add(-1); {
	case v < 0:
		panic("memtable: inconsistent reference count")
	case v == 0:
		return true
	default:
		return false
	}
}

// Refs reports the current reference count.
func (m *Memtable) Refs() int32 { return m.refs.Load() }

// MarkImmutable transitions the Memtable from active to immutable. Called
// once the table decides to roll to a new active Memtable; Add must not be
// called again afterward.
func (m *Memtable) MarkImmutable() {
	m.immutable.Store(true)
}

// Immutable reports whether MarkImmutable has been called.
func (m *Memtable) Immutable() bool { return m.immutable.Load() }

// entryCompare orders two arena-encoded entries by their embedded internal
// key, per spec §4.4's entry format.
func (m *Memtable) entryCompare(a, b []byte) int {
	return m.cmp.Compare(entryKey(a), entryKey(b))
}

// entryKey extracts the internal-key portion (user key ++ trailer) from an
// arena-encoded entry, whose layout is:
//
//	varint32(len(internalKey)) ++ internalKey ++ varint32(len(value)) ++ value
func entryKey(entry []byte) []byte {
	klen, n := binary.Uvarint(entry)
	return entry[n : n+int(klen)]
}

// entryValue extracts the value portion of an arena-encoded entry.
func entryValue(entry []byte) []byte {
	klen, n := binary.Uvarint(entry)
	rest := entry[n+int(klen):]
	vlen, m := binary.Uvarint(rest)
	return rest[m : m+int(vlen)]
}

// Add inserts a new entry. seq must be strictly greater than every
// sequence number previously added for any key (the write path assigns
// sequence numbers monotonically before calling Add). value is ignored for
// base.InternalKeyKindDelete. Add panics if the Memtable has already been
// marked immutable; the write path must have rolled to a new active
// Memtable before this can happen.
func (m *Memtable) Add(seq base.SeqNum, kind base.InternalKeyKind, userKey, value []byte) {
	if m.Immutable() {
		panic("memtable: Add called on an immutable memtable")
	}
	if kind == base.InternalKeyKindDelete {
		value = nil
	}
	ikey := base.MakeInternalKey(userKey, seq, kind)

	klen := ikey.Size()
	entryLen := uvarintLen(uint64(klen)) + klen + uvarintLen(uint64(len(value))) + len(value)
	buf := m.arena.Allocate(entryLen)

	n := binary.PutUvarint(buf, uint64(klen))
	ikey.Encode(buf[n : n+klen])
	n += klen
	n += binary.PutUvarint(buf[n:], uint64(len(value)))
	copy(buf[n:], value)

	m.skl.Insert(buf)
}

// Get returns the value visible for userKey at sequence number seq (the
// newest entry with sequence number <= seq), classifying it as Found,
// Deleted, or Missing. The returned slice aliases arena-owned memory and
// must not be retained past the Memtable's lifetime without copying.
func (m *Memtable) Get(userKey []byte, seq base.SeqNum) ([]byte, LookupResult) {
	// The skiplist orders arena-encoded entries, so the search key carries
	// the same varint32 length prefix entryKey parses.
	search := base.MakeInternalKey(userKey, seq, base.InternalKeyKindValueForSeek)
	klen := search.Size()
	buf := make([]byte, uvarintLen(uint64(klen))+klen)
	n := binary.PutUvarint(buf, uint64(klen))
	search.Encode(buf[n:])

	it := m.skl.NewIterator()
	it.SeekGE(buf)
	if !it.Valid() {
		return nil, Missing
	}
	found := base.DecodeInternalKey(entryKey(it.Key()))
	if !m.cmp.UserKeyComparer.Equal(found.UserKey, userKey) {
		return nil, Missing
	}
	if found.Kind() == base.InternalKeyKindDelete {
		return nil, Deleted
	}
	return entryValue(it.Key()), Found
}

// MemoryUsage reports the arena bytes consumed so far; safe to call
// concurrently with Add and with any reader.
func (m *Memtable) MemoryUsage() int64 { return m.arena.MemoryUsage() }

// NewIterator returns an Iterator over every entry in the memtable, in
// internal-key order (ascending user key, descending sequence number).
func (m *Memtable) NewIterator() *Iterator {
	return &Iterator{it: m.skl.NewIterator()}
}

// Iterator walks a Memtable's entries in internal-key order.
type Iterator struct {
	it *skl.Iterator
}

// SeekGE positions the iterator at the first entry whose internal key is >=
// the search key built from (userKey, seq).
func (it *Iterator) SeekGE(userKey []byte, seq base.SeqNum) {
	search := base.MakeInternalKey(userKey, seq, base.InternalKeyKindValueForSeek)
	klen := search.Size()
	buf := make([]byte, uvarintLen(uint64(klen))+klen)
	n := binary.PutUvarint(buf, uint64(klen))
	search.Encode(buf[n:])
	it.it.SeekGE(buf)
}

// First positions the iterator at the first entry.
func (it *Iterator) First() { it.it.First() }

// Next advances the iterator.
func (it *Iterator) Next() { it.it.Next() }

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.it.Valid() }

// Key returns the current entry's internal key. It aliases arena-owned
// memory.
func (it *Iterator) Key() base.InternalKey {
	return base.DecodeInternalKey(entryKey(it.it.Key()))
}

// Value returns the current entry's value. It aliases arena-owned memory
// and is meaningless (empty) for a deletion entry.
func (it *Iterator) Value() []byte {
	return entryValue(it.it.Key())
}

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
