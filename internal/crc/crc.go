// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package crc implements the CRC32C ("Castagnoli") checksum and the
// LevelDB-style masking spec §6 requires: every WAL record header and
// every sstable block trailer stores mask(crc), not crc, so that a
// preallocated all-zero region of a file can never be mistaken for a valid
// record. The corpus's record.go calls a sibling "internal/crc" package
// as crc.New(b).Value(); that entry point is kept here for the same call
// shape, with Mask/Unmask added since this repository's wire format (spec
// §6) requires masking where the retrieved fork's did not.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// CRC is a computed (unmasked) CRC32C value.
type CRC uint32

// New computes the CRC32C of b.
func New(b []byte) CRC {
	return CRC(crc32.Checksum(b, table))
}

// Update extends a running CRC32C computation with more bytes, seeded by an
// existing CRC.Value().
func Update(crc uint32, b []byte) CRC {
	return CRC(crc32.Update(crc, table, b))
}

// Value returns the raw (unmasked) uint32 checksum.
func (c CRC) Value() uint32 {
	return uint32(c)
}

// Mask returns a masked checksum, as described in spec §6: a rotation
// designed so that trivial inputs (e.g. an all-zero payload, whose natural
// CRC32C is also predictable) do not produce a stored checksum that could
// be confused with an unwritten, preallocated region of a file.
func (c CRC) Mask() uint32 {
	v := uint32(c)
	return ((v >> 15) | (v << 17)) + 0xa282ead8
}

// Unmask reverses Mask, recovering the raw CRC32C value that was computed
// at write time.
func Unmask(masked uint32) uint32 {
	rot := masked - 0xa282ead8
	return (rot << 15) | (rot >> 17)
}
