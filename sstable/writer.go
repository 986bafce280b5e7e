// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/sstable/block"
	"github.com/cockroachdb/pebble-storage-core/sstable/filter"
	"github.com/golang/snappy"
)

// Writer builds one sstable, following TableBuilder::Add/Flush/Finish's
// deferred-index-entry design: the index entry for a data block is only
// appended once the first key of the *next* block is known, so it can be
// the shortest separator between the two blocks rather than a full key.
type Writer struct {
	w   io.Writer
	opt *base.Options
	cmp base.InternalKeyComparer

	offset uint64
	closed bool
	err    error

	dataBlock  *block.Builder
	indexBlock *block.Builder

	filterBlock *filter.BlockBuilder

	pendingIndexEntry bool
	pendingHandle     blockHandle
	lastKey           []byte

	numEntries int
}

// NewWriter creates a Writer that appends the encoded table to w. opt must
// have been through EnsureDefaults.
func NewWriter(w io.Writer, opt *base.Options) *Writer {
	tw := &Writer{
		w:          w,
		opt:        opt,
		cmp:        base.MakeInternalKeyComparer(opt.Comparer),
		dataBlock:  block.NewBuilder(opt.BlockRestartInterval),
		indexBlock: block.NewBuilder(base.IndexRestartInterval),
	}
	if opt.FilterPolicy != nil {
		tw.filterBlock = filter.NewBlockBuilder(opt.FilterPolicy)
		tw.filterBlock.StartBlock(0)
	}
	return tw
}

func encodeIKey(k base.InternalKey) []byte {
	buf := make([]byte, k.Size())
	k.Encode(buf)
	return buf
}

// Add appends an internal key and its value. Keys must be added in
// strictly increasing internal-key order.
func (w *Writer) Add(key base.InternalKey, value []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.New("sstable: writer already closed")
	}
	encoded := encodeIKey(key)

	if w.numEntries > 0 && w.cmp.Compare(encoded, w.lastKey) <= 0 {
		return errors.New("sstable: keys must be added in increasing order")
	}

	if w.pendingIndexEntry {
		sep := w.cmp.FindShortestSeparator(base.DecodeInternalKey(w.lastKey), key)
		var handleEnc []byte
		handleEnc = w.pendingHandle.encode(handleEnc)
		w.indexBlock.Add(encodeIKey(sep), handleEnc)
		w.pendingIndexEntry = false
	}

	if w.filterBlock != nil {
		w.filterBlock.AddKey(key.UserKey)
	}

	w.dataBlock.Add(encoded, value)
	w.lastKey = append(w.lastKey[:0], encoded...)
	w.numEntries++

	if w.dataBlock.EstimatedSize() >= w.opt.BlockSize {
		return w.flush()
	}
	return nil
}

// stripTrailer strips an encoded internal key's trailer, returning the
// user key alone (used to compute the successor of the table's last user
// key for the final index entry).
func stripTrailer(encodedInternalKey []byte) []byte {
	return base.DecodeInternalKey(encodedInternalKey).UserKey
}

func (w *Writer) flush() error {
	if w.err != nil {
		return w.err
	}
	if w.dataBlock.Empty() {
		return nil
	}
	handle, err := w.writeBlock(w.dataBlock.Finish(), w.opt.Compression)
	if err != nil {
		w.err = err
		return err
	}
	w.dataBlock.Reset()
	w.pendingIndexEntry = true
	w.pendingHandle = handle

	if w.filterBlock != nil {
		w.filterBlock.StartBlock(w.offset)
	}
	return nil
}

func (w *Writer) writeBlock(contents []byte, compression base.Compression) (blockHandle, error) {
	typ := compression
	if typ == base.CompressionSnappy {
		compressed := snappy.Encode(nil, contents)
		if len(compressed) < len(contents)-len(contents)/8 {
			contents = compressed
		} else {
			typ = base.CompressionNone
		}
	}
	handle := blockHandle{Offset: w.offset, Length: uint64(len(contents))}

	if _, err := w.w.Write(contents); err != nil {
		return blockHandle{}, err
	}
	trailer := checksumTrailer(contents, typ)
	if _, err := w.w.Write(trailer[:]); err != nil {
		return blockHandle{}, err
	}
	w.offset += uint64(len(contents)) + blockTrailerLen
	return handle, nil
}

// Close finishes the table: any pending data block is flushed, then the
// filter, metaindex, and index blocks are written, followed by the fixed
// footer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if err := w.flush(); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}

	var filterHandle blockHandle
	haveFilter := w.filterBlock != nil
	if haveFilter {
		h, err := w.writeBlock(w.filterBlock.Finish(), base.CompressionNone)
		if err != nil {
			return err
		}
		filterHandle = h
	}

	metaBlock := block.NewBuilder(base.IndexRestartInterval)
	metaBlock.Add([]byte("comparator"), []byte(w.opt.Comparer.Name))
	if haveFilter {
		key := []byte("filter." + w.opt.FilterPolicy.Name())
		var handleEnc []byte
		handleEnc = filterHandle.encode(handleEnc)
		metaBlock.Add(key, handleEnc)
	}
	metaHandle, err := w.writeBlock(metaBlock.Finish(), base.CompressionNone)
	if err != nil {
		return err
	}

	if w.pendingIndexEntry {
		succ := w.opt.Comparer.Successor(nil, stripTrailer(w.lastKey))
		var handleEnc []byte
		handleEnc = w.pendingHandle.encode(handleEnc)
		w.indexBlock.Add(encodeIKey(base.MakeSearchKey(succ)), handleEnc)
		w.pendingIndexEntry = false
	}
	indexHandle, err := w.writeBlock(w.indexBlock.Finish(), base.CompressionNone)
	if err != nil {
		return err
	}

	f := footer{metaindex: metaHandle, index: indexHandle}
	if _, err := w.w.Write(f.encode()); err != nil {
		return err
	}
	return nil
}

// Abandon marks the writer closed without writing the index, filter,
// metaindex, or footer blocks, per spec §4.8's "abandon" operation: it is
// for a build that failed partway through and whose partially-written
// bytes must not be mistaken for a complete table.
func (w *Writer) Abandon() {
	w.closed = true
}

// EstimatedSize reports the number of bytes written so far, including any
// buffered-but-unflushed data block.
func (w *Writer) EstimatedSize() uint64 {
	return w.offset + uint64(w.dataBlock.EstimatedSize())
}

// NumEntries reports the number of key/value pairs added so far.
func (w *Writer) NumEntries() int { return w.numEntries }
