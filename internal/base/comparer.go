// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"bytes"
	"encoding/binary"
)

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b.
type Compare func(a, b []byte) int

// Equal reports whether a and b are equivalent. It is a (potentially
// faster) specialization of Compare(a, b) == 0.
type Equal func(a, b []byte) bool

// Separator appends to dst a key k such that a <= k < b, favoring a short
// k when possible; a trivial implementation is `return append(dst, a...)`.
// Used by the table builder and index block to keep index keys short.
type Separator func(dst, a, b []byte) []byte

// Successor appends to dst a key k such that a <= k, favoring a short k
// when possible. Used to shorten the upper bound of the final index entry.
type Successor func(dst, a []byte) []byte

// Comparer groups together the functions needed to compare and format user
// keys, mirroring the collaborator interface spec §6 calls "User
// comparator". A single Comparer, layered under InternalKeyComparer (below),
// orders both a memtable's skiplist and an sstable's blocks.
type Comparer struct {
	Compare   Compare
	Equal     Equal
	Separator Separator
	Successor Successor
	// Name identifies the comparer. It is persisted in an sstable's
	// metaindex block and checked on Open (spec §7 NotSupported: "mismatched
	// table comparator"); changing it for an existing store is a corruption
	// hazard, not merely a compatibility wrinkle.
	Name string
}

// DefaultComparer orders keys lexicographically by their uninterpreted
// bytes, the same default spec §3 names for the user key.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Equal:   bytes.Equal,
	Separator: func(dst, a, b []byte) []byte {
		i, n := sharedPrefixLen(a, b), len(dst)
		if i == len(a) {
			// a is a prefix of b (or equal); no shorter separator exists.
			return append(dst, a...)
		}
		if i < len(b) {
			if c := a[i]; c < 0xff && c+1 < b[i] {
				// A single byte increment after the shared prefix is both
				// short and strictly between a and b.
				dst = append(dst, a[:i+1]...)
				dst[n+i]++
				return dst
			}
		}
		return append(dst, a...)
	},
	Successor: func(dst, a []byte) []byte {
		for i := 0; i < len(a); i++ {
			c := a[i]
			if c != 0xff {
				dst = append(dst, a[:i+1]...)
				dst[len(dst)-1]++
				return dst
			}
		}
		// a is all 0xff bytes (or empty): no shorter successor exists.
		return append(dst, a...)
	},
	Name: "leveldb.BytewiseComparator",
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// InternalKeyComparer layers the fixed (sequence, kind) suffix ordering
// over a user Comparer, per spec §4.11: it is the comparator every skiplist,
// block, and index in the core actually uses. Kept as a thin struct rather
// than a dynamically dispatched base class, per the design note in spec §9.
type InternalKeyComparer struct {
	UserKeyComparer *Comparer
}

// MakeInternalKeyComparer wraps a user comparer for internal-key ordering.
func MakeInternalKeyComparer(cmp *Comparer) InternalKeyComparer {
	return InternalKeyComparer{UserKeyComparer: cmp}
}

// Compare orders two encoded internal keys.
func (c InternalKeyComparer) Compare(a, b []byte) int {
	return InternalCompare(c.UserKeyComparer.Compare, DecodeInternalKey(a), DecodeInternalKey(b))
}

// Name reports the layered comparator's persisted name.
func (c InternalKeyComparer) Name() string {
	return c.UserKeyComparer.Name
}

// FindShortestSeparator computes a shortened internal key k with
// start <= k < limit under internal-key order, or returns start unmodified
// when no shorter separator exists (spec §4.11).
func (c InternalKeyComparer) FindShortestSeparator(start, limit InternalKey) InternalKey {
	usrStart, usrLimit := start.UserKey, limit.UserKey
	sep := c.UserKeyComparer.Separator(nil, usrStart, usrLimit)
	if len(sep) < len(usrStart) && c.UserKeyComparer.Compare(usrStart, sep) < 0 {
		// A strictly shorter, strictly greater user-key separator exists;
		// tag it with the sentinel so it still sorts >= start under
		// internal-key order and < any real key with user key usrLimit.
		return MakeSearchKey(sep)
	}
	return start
}

// FindShortSuccessor computes a shortened internal key k with key <= k, or
// returns key unmodified when no shorter successor exists (spec §4.11).
func (c InternalKeyComparer) FindShortSuccessor(key InternalKey) InternalKey {
	succ := c.UserKeyComparer.Successor(nil, key.UserKey)
	if len(succ) < len(key.UserKey) && c.UserKeyComparer.Compare(key.UserKey, succ) < 0 {
		return MakeSearchKey(succ)
	}
	return key
}

// AppendFixed32 and AppendFixed64 are thin helpers over encoding/binary used
// throughout the block and footer formats; kept here so callers needn't
// import encoding/binary solely for little-endian fixed-width fields.
func AppendFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendFixed64 appends v to dst in 8-byte little-endian form.
func AppendFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}
