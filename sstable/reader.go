// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/cache"
	"github.com/cockroachdb/pebble-storage-core/sstable/block"
	"github.com/cockroachdb/pebble-storage-core/sstable/filter"
	"github.com/golang/snappy"
)

// Reader opens a table file for point lookups and range iteration, per
// spec §4.8: NewReader parses the footer and reads the index, metaindex and
// filter blocks up front; data blocks are read as lookups and iteration
// need them. Every block read verifies the block's checksum.
type Reader struct {
	file base.File
	opt  *base.Options
	cmp  base.InternalKeyComparer

	footer footer
	index  *block.Reader

	filterReader *filter.BlockReader

	// cache is the shared block cache data blocks are loaded through, per
	// spec §4.9 step 4; nil disables caching. fileNum namespaces this
	// table's blocks within the cache, obtained once from cache.NewID so
	// distinct Readers over distinct files never collide on offset alone.
	cache   *cache.Cache
	fileNum uint64
}

// NewReader parses fileSize bytes of an already-open table file. opt must
// have been through EnsureDefaults; its Comparer.Name is checked against
// the "comparator" entry the table's writer persisted in the metaindex
// block, and NewReader fails with base.ErrNotSupported on a mismatch. c
// may be nil, in which case data blocks are always read straight from
// file.
func NewReader(file base.File, fileSize int64, opt *base.Options, c *cache.Cache) (*Reader, error) {
	if fileSize < footerLen {
		return nil, base.CorruptionErrorf("sstable: file too small to contain a footer")
	}
	footerBuf := make([]byte, footerLen)
	if _, err := file.ReadAt(footerBuf, fileSize-footerLen); err != nil {
		return nil, err
	}
	f, err := decodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:   file,
		opt:    opt,
		cmp:    base.MakeInternalKeyComparer(opt.Comparer),
		footer: f,
		cache:  c,
	}
	if c != nil {
		r.fileNum = c.NewID()
	}

	indexContents, err := r.readBlock(f.index)
	if err != nil {
		return nil, errors.Wrap(err, "sstable: reading index block")
	}
	r.index, err = block.NewReader(indexContents, r.cmp.Compare)
	if err != nil {
		return nil, err
	}

	metaContents, err := r.readBlock(f.metaindex)
	if err != nil {
		return nil, errors.Wrap(err, "sstable: reading metaindex block")
	}
	if err := r.checkComparator(metaContents); err != nil {
		return nil, err
	}
	if err := r.loadFilter(metaContents); err != nil {
		return nil, err
	}
	return r, nil
}

// checkComparator validates the metaindex's "comparator" entry against
// opt.Comparer.Name, mirroring the compression-type check in readBlock:
// a mismatch means this table cannot be safely ordered or searched with
// the comparer the caller supplied.
func (r *Reader) checkComparator(metaContents []byte) error {
	meta, err := block.NewReader(metaContents, bytesCompare)
	if err != nil {
		return err
	}
	key := []byte("comparator")
	it := meta.NewIterator()
	it.SeekGE(key)
	if !it.Valid() || string(it.Key()) != string(key) {
		return base.NotSupportedErrorf("sstable: table has no comparator recorded in its metaindex")
	}
	if got := string(it.Value()); got != r.opt.Comparer.Name {
		return base.NotSupportedErrorf("sstable: table comparator %q does not match configured comparator %q", got, r.opt.Comparer.Name)
	}
	return nil
}

func (r *Reader) loadFilter(metaContents []byte) error {
	if r.opt.FilterPolicy == nil {
		return nil
	}
	meta, err := block.NewReader(metaContents, bytesCompare)
	if err != nil {
		return err
	}
	key := []byte("filter." + r.opt.FilterPolicy.Name())
	it := meta.NewIterator()
	it.SeekGE(key)
	if !it.Valid() || string(it.Key()) != string(key) {
		// No filter block recorded (or it was built with a different
		// policy name): lookups fall back to consulting data blocks
		// directly, per spec §4.9's "absent filter is not an error".
		return nil
	}
	handle, _, err := decodeBlockHandle(it.Value())
	if err != nil {
		return err
	}
	contents, err := r.readBlock(handle)
	if err != nil {
		return err
	}
	r.filterReader = filter.NewBlockReader(r.opt.FilterPolicy, contents)
	return nil
}

func bytesCompare(a, b []byte) int { return strings.Compare(string(a), string(b)) }

// readBlock reads, checksums, and decompresses the block at handle.
func (r *Reader) readBlock(handle blockHandle) ([]byte, error) {
	buf := make([]byte, handle.Length+blockTrailerLen)
	if _, err := r.file.ReadAt(buf, int64(handle.Offset)); err != nil {
		return nil, err
	}
	contents := buf[:handle.Length]
	trailer := buf[handle.Length:]

	want := checksumTrailer(contents, base.Compression(trailer[0]))
	if want[1] != trailer[1] || want[2] != trailer[2] || want[3] != trailer[3] || want[4] != trailer[4] {
		return nil, base.CorruptionErrorf("sstable: block checksum mismatch at offset %d", handle.Offset)
	}

	switch base.Compression(trailer[0]) {
	case base.CompressionNone:
		return contents, nil
	case base.CompressionSnappy:
		n, err := snappy.DecodedLen(contents)
		if err != nil {
			return nil, base.MarkCorrupted(err)
		}
		decoded := make([]byte, n)
		decoded, err = snappy.Decode(decoded, contents)
		if err != nil {
			return nil, base.MarkCorrupted(err)
		}
		return decoded, nil
	default:
		return nil, base.NotSupportedErrorf("sstable: unrecognized block compression type %d", trailer[0])
	}
}

// readDataBlock reads the data block at handle, consulting the shared
// block cache first when the Reader has one, per spec §4.9 step 4. It
// returns the decoded block together with the cache.Handle backing it (nil
// when there is no cache, or the block was read straight from file); the
// caller must Release the handle once done with the block, via
// r.cache.Release, which tolerates a nil cache and a nil handle.
func (r *Reader) readDataBlock(handle blockHandle) ([]byte, *cache.Handle, error) {
	if r.cache == nil {
		contents, err := r.readBlock(handle)
		return contents, nil, err
	}
	key := cache.Key{FileNum: r.fileNum, Offset: handle.Offset}
	if h := r.cache.Get(key); h != nil {
		return h.Value(), h, nil
	}
	contents, err := r.readBlock(handle)
	if err != nil {
		return nil, nil, err
	}
	h := r.cache.Insert(key, contents, int64(len(contents)))
	return contents, h, nil
}

// Get returns the value for the newest entry visible at internal key
// search (spec §4.8's point lookup path): consult the filter for the data
// block the index says the key would live in, and only read that block on
// a possible match.
func (r *Reader) Get(search base.InternalKey) ([]byte, base.InternalKeyKind, error) {
	encoded := encodeIKey(search)

	idx := r.index.NewIterator()
	idx.SeekGE(encoded)
	if !idx.Valid() {
		return nil, 0, base.ErrNotFound
	}
	handle, _, err := decodeBlockHandle(idx.Value())
	if err != nil {
		return nil, 0, err
	}

	if r.filterReader != nil && !r.filterReader.MayContain(handle.Offset, search.UserKey) {
		return nil, 0, base.ErrNotFound
	}

	dataContents, dataHandle, err := r.readDataBlock(handle)
	if err != nil {
		return nil, 0, err
	}
	defer r.cache.Release(dataHandle)
	dataReader, err := block.NewReader(dataContents, r.cmp.Compare)
	if err != nil {
		return nil, 0, err
	}
	it := dataReader.NewIterator()
	it.SeekGE(encoded)
	if !it.Valid() {
		return nil, 0, base.ErrNotFound
	}
	found := base.DecodeInternalKey(it.Key())
	if !r.opt.Comparer.Equal(found.UserKey, search.UserKey) {
		return nil, 0, base.ErrNotFound
	}
	// Copied out because dataContents may alias a cache entry that
	// r.cache.Release, above, can make eligible for eviction.
	value := append([]byte(nil), it.Value()...)
	return value, found.Kind(), nil
}

// BlockStat describes one data block located through the index, for
// introspection tools that want to print a table's physical layout
// without iterating every entry.
type BlockStat struct {
	IndexKey      base.InternalKey
	Offset, Length uint64
}

// Layout walks the index block and returns one BlockStat per data block.
func (r *Reader) Layout() ([]BlockStat, error) {
	var stats []BlockStat
	it := r.index.NewIterator()
	for it.First(); it.Valid(); it.Next() {
		handle, _, err := decodeBlockHandle(it.Value())
		if err != nil {
			return nil, err
		}
		stats = append(stats, BlockStat{
			IndexKey: base.DecodeInternalKey(it.Key()),
			Offset:   handle.Offset,
			Length:   handle.Length,
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return stats, nil
}

// NewIterator returns a two-level iterator over every entry in the table,
// in ascending internal-key order (spec §4.8's range scan path): the
// index block selects a data block, and the data block is iterated until
// exhausted, at which point the next index entry selects the next block.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r, idx: r.index.NewIterator()}
}

// Iterator is the two-level (index-over-data) iterator spec §4.8 and §9's
// design note call for. When the Reader it was built from has a block
// cache, the iterator holds a Handle on whichever data block it is
// currently positioned in; Close (or moving to another block) releases it.
type Iterator struct {
	r          *Reader
	idx        *block.Iterator
	data       *block.Iterator
	dataHandle *cache.Handle
	err        error
}

// Close releases the cache handle, if any, backing the iterator's current
// data block. Callers must Close an Iterator once done with it.
func (it *Iterator) Close() error {
	it.r.cache.Release(it.dataHandle)
	it.dataHandle = nil
	return it.err
}

// SeekGE positions the iterator at the first entry >= key.
func (it *Iterator) SeekGE(key base.InternalKey) {
	it.idx.SeekGE(encodeIKey(key))
	if !it.loadData() {
		return
	}
	it.data.SeekGE(encodeIKey(key))
	if !it.data.Valid() {
		it.advanceBlock()
	}
}

// First positions the iterator at the table's first entry.
func (it *Iterator) First() {
	it.idx.First()
	if !it.loadData() {
		return
	}
	it.data.First()
	if !it.data.Valid() {
		it.advanceBlock()
	}
}

// Last positions the iterator at the table's last entry, per spec §4.9's
// backward traversal requirement.
func (it *Iterator) Last() {
	it.idx.Last()
	if !it.loadData() {
		return
	}
	it.data.Last()
	if !it.data.Valid() {
		it.retreatBlock()
	}
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	if it.data == nil {
		return
	}
	it.data.Next()
	if !it.data.Valid() {
		it.advanceBlock()
	}
}

// Prev retreats to the entry immediately preceding the current one, per
// spec §4.9. Composes block.Iterator.Prev within the current data block,
// falling back to the previous data block (positioned at its last entry)
// once the current one is exhausted.
func (it *Iterator) Prev() {
	if it.data == nil {
		return
	}
	it.data.Prev()
	if !it.data.Valid() {
		it.retreatBlock()
	}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.err == nil && it.data != nil && it.data.Valid()
}

// Error returns the first error encountered during iteration, if any.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.idx.Error() != nil {
		return it.idx.Error()
	}
	if it.data != nil {
		return it.data.Error()
	}
	return nil
}

// Key returns the current entry's internal key.
func (it *Iterator) Key() base.InternalKey { return base.DecodeInternalKey(it.data.Key()) }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.data.Value() }

// loadData loads the data block the index iterator currently points at.
// It returns false (leaving the iterator invalid) once the index is
// exhausted.
func (it *Iterator) loadData() bool {
	it.r.cache.Release(it.dataHandle)
	it.dataHandle = nil
	if !it.idx.Valid() {
		it.data = nil
		return false
	}
	handle, _, err := decodeBlockHandle(it.idx.Value())
	if err != nil {
		it.err = err
		it.data = nil
		return false
	}
	contents, dataHandle, err := it.r.readDataBlock(handle)
	if err != nil {
		it.err = err
		it.data = nil
		return false
	}
	reader, err := block.NewReader(contents, it.r.cmp.Compare)
	if err != nil {
		it.r.cache.Release(dataHandle)
		it.err = err
		it.data = nil
		return false
	}
	it.dataHandle = dataHandle
	it.data = reader.NewIterator()
	return true
}

// advanceBlock moves to the next index entry after the current data block
// is exhausted, repeating until a non-empty data block is found or the
// index runs out.
func (it *Iterator) advanceBlock() {
	for {
		it.idx.Next()
		if !it.loadData() {
			return
		}
		it.data.First()
		if it.data.Valid() {
			return
		}
	}
}

// retreatBlock moves to the previous index entry after the current data
// block is exhausted going backward, repeating until a non-empty data
// block is found or the index runs out.
func (it *Iterator) retreatBlock() {
	for {
		it.idx.Prev()
		if !it.loadData() {
			return
		}
		it.data.Last()
		if it.data.Valid() {
			return
		}
	}
}

// ApproximateOffsetOf estimates the file offset of key, per spec §4.8, by
// looking up the data block the index would route it to. Keys past the
// last entry return the offset of the metaindex block, which follows every
// data block (and the filter block, if any).
func (r *Reader) ApproximateOffsetOf(key base.InternalKey) uint64 {
	idx := r.index.NewIterator()
	idx.SeekGE(encodeIKey(key))
	if !idx.Valid() {
		return r.footer.metaindex.Offset
	}
	handle, _, err := decodeBlockHandle(idx.Value())
	if err != nil {
		return r.footer.metaindex.Offset
	}
	return handle.Offset
}
