// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

// FilterPolicy is the collaborator interface spec §6 calls "Filter policy":
// a pluggable per-key filter (Bloom by default) that the filter block
// builder feeds accumulated keys through, and the filter block reader
// consults to skip data blocks that provably don't contain a key.
type FilterPolicy interface {
	// Name identifies the policy. It is embedded in the sstable metaindex
	// key ("filter." + Name()) so Open can locate the matching filter
	// block; a mismatched policy at open time degrades to skipping the
	// filter rather than misinterpreting its bytes.
	Name() string
	// NewFilter builds a filter over the given set of keys.
	NewFilter(keys [][]byte) []byte
	// MayContain reports whether key might be a member of the filter
	// previously built by NewFilter. False positives are allowed; false
	// negatives are not.
	MayContain(filter, key []byte) bool
}

// Compression names the wire-format compression type byte spec §6 defines
// for an sstable block trailer.
type Compression uint8

// The only two compression types the block trailer format defines.
const (
	CompressionNone   Compression = 0
	CompressionSnappy Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}
