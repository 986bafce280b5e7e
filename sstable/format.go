// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package sstable implements the on-disk sorted string table spec §4.8
// describes: data blocks, an index block over them, an optional filter
// block, a metaindex block naming the filter, and a fixed-size footer
// pointing at the index and metaindex blocks. Grounded on
// original_source/leveldb-master/table/{format,table_builder,table}.cc.
package sstable

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/crc"
)

// blockTrailerLen is the compression-type byte plus the masked CRC32C that
// follows every physical block on disk.
const blockTrailerLen = 5

// magic is the fixed 8-byte footer trailer identifying a valid table file.
// It is the same constant LevelDB has shipped since its first release;
// changing it would make every table in this format unrecognizable to
// itself, which spec §4.8 has no reason to do.
const magic uint64 = 0xdb4775248b80fb57

// footerLen is the fixed size of the encoded footer: two block handles at
// their maximum varint64-pair width, zero-padded, followed by the 8-byte
// magic.
const footerLen = 2*maxHandleLen + 8
const maxHandleLen = binary.MaxVarintLen64 * 2

// blockHandle locates a block within the table file.
type blockHandle struct {
	Offset, Length uint64
}

func (h blockHandle) encode(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, h.Offset)
	dst = binary.AppendUvarint(dst, h.Length)
	return dst
}

func decodeBlockHandle(src []byte) (blockHandle, int, error) {
	offset, n1 := binary.Uvarint(src)
	if n1 <= 0 {
		return blockHandle{}, 0, errors.New("sstable: corrupt block handle")
	}
	length, n2 := binary.Uvarint(src[n1:])
	if n2 <= 0 {
		return blockHandle{}, 0, errors.New("sstable: corrupt block handle")
	}
	return blockHandle{Offset: offset, Length: length}, n1 + n2, nil
}

// footer is the fixed-length trailer spec §4.8 places at the end of every
// table file.
type footer struct {
	metaindex blockHandle
	index     blockHandle
}

func (f footer) encode() []byte {
	buf := make([]byte, 0, footerLen)
	buf = f.metaindex.encode(buf)
	buf = f.index.encode(buf)
	buf = append(buf, make([]byte, 2*maxHandleLen-len(buf))...)
	buf = base.AppendFixed64(buf, magic)
	return buf
}

func decodeFooter(buf []byte) (footer, error) {
	if len(buf) != footerLen {
		return footer{}, errors.Newf("sstable: footer has wrong length %d", len(buf))
	}
	got := binary.LittleEndian.Uint64(buf[footerLen-8:])
	if got != magic {
		return footer{}, base.CorruptionErrorf("sstable: bad magic number")
	}
	mh, n, err := decodeBlockHandle(buf)
	if err != nil {
		return footer{}, err
	}
	ih, _, err := decodeBlockHandle(buf[n:])
	if err != nil {
		return footer{}, err
	}
	return footer{metaindex: mh, index: ih}, nil
}

// compressionType tags a physical block's on-disk compression, matching
// base.Compression's values so the two enums can be cast directly.
type compressionType = base.Compression

// checksumTrailer computes the masked CRC32C spec §6 requires for a
// physical block: the checksum covers the (possibly compressed) block
// bytes and the trailing compression-type byte.
func checksumTrailer(blockContents []byte, typ compressionType) [blockTrailerLen]byte {
	var trailer [blockTrailerLen]byte
	trailer[0] = byte(typ)
	c := crc.New(blockContents)
	c = crc.Update(c.Value(), trailer[:1])
	binary.LittleEndian.PutUint32(trailer[1:], c.Mask())
	return trailer
}
