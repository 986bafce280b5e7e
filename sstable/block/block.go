// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package block implements the prefix-compressed block format spec §4.7
// describes, grounded on original_source/leveldb-master/table/
// block_builder.cc and block.cc: entries share a prefix with the previous
// key except at restart points, which store the full key so a reader can
// binary-search the restart table before falling back to a linear prefix
// scan.
package block

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
)

// Builder assembles one block: a sequence of entries followed by a restart
// point offset table and its length.
type Builder struct {
	restartInterval int
	buf             []byte
	restarts        []uint32
	counter         int
	lastKey         []byte
}

// NewBuilder creates a Builder that inserts a restart point every
// restartInterval entries (spec §4.7's default is 16; the index block uses
// 1, per base.IndexRestartInterval).
func NewBuilder(restartInterval int) *Builder {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &Builder{restartInterval: restartInterval, restarts: []uint32{0}}
}

// Empty reports whether no entry has been added since the last Reset.
func (b *Builder) Empty() bool { return len(b.buf) == 0 }

// EstimatedSize approximates the block's final encoded size, including the
// not-yet-written restart table, so callers can decide when to flush.
func (b *Builder) EstimatedSize() int {
	return len(b.buf) + len(b.restarts)*4 + 4
}

// Add appends a key/value entry. Keys must be added in strictly increasing
// order (the table builder enforces this via the internal-key comparer).
func (b *Builder) Add(key, value []byte) {
	shared := 0
	if b.counter < b.restartInterval {
		shared = sharedPrefixLen(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(len(b.buf)))
		b.counter = 0
	}
	nonShared := key[shared:]

	var scratch [binary.MaxVarintLen32]byte
	b.buf = appendUvarint(b.buf, scratch[:], uint64(shared))
	b.buf = appendUvarint(b.buf, scratch[:], uint64(len(nonShared)))
	b.buf = appendUvarint(b.buf, scratch[:], uint64(len(value)))
	b.buf = append(b.buf, nonShared...)
	b.buf = append(b.buf, value...)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

// Finish appends the restart point table and returns the complete block.
// The Builder must not be reused without calling Reset.
func (b *Builder) Finish() []byte {
	for _, r := range b.restarts {
		b.buf = base.AppendFixed32(b.buf, r)
	}
	b.buf = base.AppendFixed32(b.buf, uint32(len(b.restarts)))
	return b.buf
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.restarts = b.restarts[:0]
	b.restarts = append(b.restarts, 0)
	b.counter = 0
	b.lastKey = b.lastKey[:0]
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

func appendUvarint(dst, scratch []byte, v uint64) []byte {
	n := binary.PutUvarint(scratch, v)
	return append(dst, scratch[:n]...)
}

// readRestartCount reads the restart-point count trailer of an encoded
// block.
func readRestartCount(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, errors.New("block: truncated restart trailer")
	}
	return int(binary.LittleEndian.Uint32(data[len(data)-4:])), nil
}

// entry is one decoded (key, value, nextOffset) record.
type entry struct {
	key   []byte
	value []byte
	next  int
}

// decodeEntryAt decodes the entry at offset, given the full key of the
// most recently decoded entry (needed to reconstruct a shared prefix);
// prevKey may be nil when offset is a restart point.
func decodeEntryAt(data []byte, limit, offset int, prevKey []byte) (entry, error) {
	p := data[offset:limit]
	shared, n1 := binary.Uvarint(p)
	if n1 <= 0 {
		return entry{}, errors.New("block: corrupt entry header")
	}
	nonShared, n2 := binary.Uvarint(p[n1:])
	if n2 <= 0 {
		return entry{}, errors.New("block: corrupt entry header")
	}
	valLen, n3 := binary.Uvarint(p[n1+n2:])
	if n3 <= 0 {
		return entry{}, errors.New("block: corrupt entry header")
	}
	head := n1 + n2 + n3
	if int(shared) > len(prevKey) || head+int(nonShared)+int(valLen) > len(p) {
		return entry{}, errors.New("block: corrupt entry lengths")
	}

	keyDelta := p[head : head+int(nonShared)]
	value := p[head+int(nonShared) : head+int(nonShared)+int(valLen)]

	key := make([]byte, 0, int(shared)+int(nonShared))
	key = append(key, prevKey[:shared]...)
	key = append(key, keyDelta...)

	return entry{key: key, value: value, next: offset + head + int(nonShared) + int(valLen)}, nil
}

// Reader provides random access into an encoded block via binary search
// over its restart points, per spec §4.7.
type Reader struct {
	data        []byte
	cmp         base.Compare
	numRestarts int
	restartsOff int // byte offset in data where the entries end and the restart table begins
}

// NewReader parses an encoded block.
func NewReader(data []byte, cmp base.Compare) (*Reader, error) {
	n, err := readRestartCount(data)
	if err != nil {
		return nil, err
	}
	return &Reader{
		data:        data,
		cmp:         cmp,
		numRestarts: n,
		restartsOff: len(data) - 4 - n*4,
	}, nil
}

func (r *Reader) restartOffset(i int) int {
	off := r.restartsOff + i*4
	return int(binary.LittleEndian.Uint32(r.data[off : off+4]))
}

// seekToRestartLE returns the index of the last restart point whose key is
// <= key, via binary search (spec §4.7's "binary search over restarts").
func (r *Reader) seekToRestartLE(key []byte) (int, error) {
	lo, hi := 0, r.numRestarts-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		e, err := decodeEntryAt(r.data, r.restartsOff, r.restartOffset(mid), nil)
		if err != nil {
			return 0, err
		}
		if r.cmp(e.key, key) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// restartIndexBefore returns the index of the last restart point whose
// offset is strictly less than target, or -1 if target is (or precedes)
// the block's first entry. Used by Iterator.Prev to find where to resume
// a forward scan toward the entry immediately preceding target.
func (r *Reader) restartIndexBefore(target int) int {
	if r.restartOffset(0) >= target {
		return -1
	}
	lo, hi := 0, r.numRestarts-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.restartOffset(mid) < target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Iterator walks a Reader's entries, tracking the running key needed to
// undo prefix compression.
type Iterator struct {
	r      *Reader
	start  int // offset where the current entry begins
	offset int // offset where the current entry ends (the next entry's start)
	key    []byte
	value  []byte
	err    error
}

// NewIterator returns an unpositioned Iterator over r.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.err == nil && it.key != nil }

// Error returns the first error encountered, if any.
func (it *Iterator) Error() error { return it.err }

// Key returns the current entry's key.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.value }

// First positions the iterator at the block's first entry.
func (it *Iterator) First() {
	it.decodeFrom(0, nil)
}

// Last positions the iterator at the block's last entry, per spec §4.6's
// seek_last operation: scan forward from the final restart point, since
// only the entries within one restart run can be reconstructed from a
// single starting key.
func (it *Iterator) Last() {
	it.decodeFrom(it.r.restartOffset(it.r.numRestarts-1), nil)
	for it.Valid() && it.offset < it.r.restartsOff {
		it.decodeFrom(it.offset, it.key)
	}
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	if it.key == nil {
		return
	}
	it.decodeFrom(it.offset, it.key)
}

// Prev retreats to the entry immediately preceding the current one, per
// spec §4.6's prev operation. Restart points store full keys but only in
// the forward direction, so this finds the restart run containing the
// current entry and re-scans forward to the entry just short of it,
// mirroring leveldb's Block::Iter::Prev.
func (it *Iterator) Prev() {
	if it.err != nil || it.key == nil {
		return
	}
	original := it.start
	idx := it.r.restartIndexBefore(original)
	if idx < 0 {
		it.key, it.value = nil, nil
		return
	}
	it.decodeFrom(it.r.restartOffset(idx), nil)
	for it.Valid() && it.offset < original {
		it.decodeFrom(it.offset, it.key)
	}
}

func (it *Iterator) decodeFrom(offset int, prevKey []byte) {
	if offset >= it.r.restartsOff {
		it.key, it.value = nil, nil
		return
	}
	e, err := decodeEntryAt(it.r.data, it.r.restartsOff, offset, prevKey)
	if err != nil {
		it.err = err
		it.key, it.value = nil, nil
		return
	}
	it.start = offset
	it.key, it.value, it.offset = e.key, e.value, e.next
}

// SeekGE positions the iterator at the first entry whose key is >= key,
// using binary search over restart points followed by a linear scan
// within the winning restart run.
func (it *Iterator) SeekGE(key []byte) {
	restart, err := it.r.seekToRestartLE(key)
	if err != nil {
		it.err = err
		return
	}
	it.decodeFrom(it.r.restartOffset(restart), nil)
	for it.Valid() && it.r.cmp(it.key, key) < 0 {
		it.decodeFrom(it.offset, it.key)
	}
}
