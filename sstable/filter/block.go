// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// This file implements the filter block's own framing: a sequence of
// per-partition filters (built by Policy.NewFilter) followed by a table of
// 4-byte offsets into that sequence and a trailing byte recording
// base.FilterBaseLog2, directly grounded on
// original_source/leveldb-master/table/filter_block.cc's
// FilterBlockBuilder/FilterBlockReader.
package filter

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble-storage-core/internal/base"
)

// BlockBuilder accumulates keys across many data blocks and, every time the
// cumulative data-block byte offset crosses a base.FilterBase boundary,
// seals the keys seen so far into one filter partition. Callers call
// AddKey for every key added to the current data block and StartBlock
// after each data block is flushed, with the file offset the next data
// block will start at.
type BlockBuilder struct {
	policy base.FilterPolicy

	keys       [][]byte
	filters    []byte   // concatenation of every partition's filter bytes
	filterAt   []uint32 // filterAt[i] is the byte offset of partition i within filters
	numFilters uint32
}

// NewBlockBuilder creates a BlockBuilder using policy to build each
// partition's filter.
func NewBlockBuilder(policy base.FilterPolicy) *BlockBuilder {
	return &BlockBuilder{policy: policy}
}

// AddKey records a key belonging to the data block currently being built.
func (b *BlockBuilder) AddKey(key []byte) {
	b.keys = append(b.keys, key)
}

// StartBlock is called once a data block has been fully written (and once
// with 0 at construction), with blockOffset the file offset the next data
// block will begin at. It seals as many filter partitions as blockOffset's
// position now calls for: none for StartBlock(0), and more than one when
// the data written since the previous call crosses more than one
// FilterBase boundary; every partition after the first of these is empty.
func (b *BlockBuilder) StartBlock(blockOffset uint64) {
	filterIndex := blockOffset / base.FilterBase
	for uint64(b.numFilters) < filterIndex {
		b.generateFilter()
	}
}

func (b *BlockBuilder) generateFilter() {
	if len(b.keys) == 0 {
		b.filterAt = append(b.filterAt, uint32(len(b.filters)))
		b.numFilters++
		return
	}
	b.filterAt = append(b.filterAt, uint32(len(b.filters)))
	b.filters = append(b.filters, b.policy.NewFilter(b.keys)...)
	b.keys = b.keys[:0]
	b.numFilters++
}

// Finish seals any pending keys into a final partition and returns the
// encoded filter block: filters ++ offsets[uint32 LE] ++ arrayOffset[uint32
// LE] ++ base.FilterBaseLog2.
func (b *BlockBuilder) Finish() []byte {
	if len(b.keys) > 0 {
		b.generateFilter()
	}
	arrayOffset := uint32(len(b.filters))

	buf := make([]byte, 0, len(b.filters)+4*len(b.filterAt)+5)
	buf = append(buf, b.filters...)
	for _, off := range b.filterAt {
		buf = base.AppendFixed32(buf, off)
	}
	buf = base.AppendFixed32(buf, arrayOffset)
	buf = append(buf, byte(base.FilterBaseLog2))
	return buf
}

// BlockReader answers KeyMayMatch queries against a filter block produced
// by BlockBuilder.Finish.
type BlockReader struct {
	policy base.FilterPolicy

	data     []byte // the concatenated filter bytes
	offsets  []byte // the encoded uint32 offset table, still packed
	numEntries int
	baseLg   uint8
	valid    bool
}

// NewBlockReader parses contents, a filter block previously produced by
// BlockBuilder.Finish.
func NewBlockReader(policy base.FilterPolicy, contents []byte) *BlockReader {
	r := &BlockReader{policy: policy}
	n := len(contents)
	if n < 5 {
		return r
	}
	r.baseLg = contents[n-1]
	arrayOffset := binary.LittleEndian.Uint32(contents[n-5:])
	if int(arrayOffset) > n-5 {
		return r
	}
	r.data = contents[:arrayOffset]
	r.offsets = contents[arrayOffset : n-5]
	r.numEntries = len(r.offsets) / 4
	r.valid = true
	return r
}

// MayContain reports whether key could be present in the data block that
// starts at blockOffset, consulting the filter partition covering that
// offset. Absent or malformed filter data is treated as a possible match,
// matching the corpus's fail-open stance (a filter is an optimization, not
// a correctness mechanism).
func (r *BlockReader) MayContain(blockOffset uint64, key []byte) bool {
	if !r.valid {
		return true
	}
	index := int(blockOffset >> uint(r.baseLg))
	if index >= r.numEntries {
		return true
	}
	start := binary.LittleEndian.Uint32(r.offsets[index*4:])
	var limit uint32
	if index+1 < r.numEntries {
		limit = binary.LittleEndian.Uint32(r.offsets[(index+1)*4:])
	} else {
		limit = uint32(len(r.data))
	}
	if start > limit || limit > uint32(len(r.data)) {
		return true
	}
	if start == limit {
		return false
	}
	return r.policy.MayContain(r.data[start:limit], key)
}
