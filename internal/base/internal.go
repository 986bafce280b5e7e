// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"cmp"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/redact"
)

// SeqNum is a sequence number defining precedence among identical user keys.
// A key with a higher sequence number takes precedence over an equal user
// key with a lower one. Sequence numbers are stored in the low 56 bits of an
// InternalKeyTrailer and never decrease across a process's lifetime once
// assigned.
type SeqNum uint64

const (
	// SeqNumZero is never assigned to a written key; it is used as the
	// zero value of SeqNum.
	SeqNumZero SeqNum = 0
	// SeqNumMax is the largest representable sequence number: 2^56-1.
	SeqNumMax SeqNum = 1<<56 - 1
)

// String implements fmt.Stringer.
func (s SeqNum) String() string {
	if s == SeqNumMax {
		return "inf"
	}
	return fmt.Sprintf("%d", uint64(s))
}

// SafeFormat implements redact.SafeFormatter, matching the way the rest of
// the corpus marks non-sensitive internal identifiers as safe to log.
func (s SeqNum) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(s.String()))
}

// InternalKeyKind enumerates the kind of an internal key. The core only
// distinguishes a live value from a deletion tombstone; both are the same
// entry shape on disk and in the memtable, so a small closed enumeration
// suffices (unlike a full LSM engine's merge/range-delete/... kinds).
type InternalKeyKind uint8

// These constants are part of the on-disk and in-memory record formats and
// must not be renumbered.
const (
	// InternalKeyKindValue marks a live key/value pair.
	InternalKeyKindValue InternalKeyKind = 0
	// InternalKeyKindDelete marks a tombstone: the user key is absent as of
	// this sequence number, shadowing any older entry for the same key.
	InternalKeyKindDelete InternalKeyKind = 1

	// InternalKeyKindMax is the largest key kind ever written to an entry.
	InternalKeyKindMax InternalKeyKind = InternalKeyKindDelete

	// InternalKeyKindValueForSeek is a sentinel kind, numerically larger
	// than any real kind, used only inside a LookupKey's trailer so that a
	// seek for (userKey, targetSeqNum) lands on the newest real entry with
	// sequence number <= targetSeqNum. It must never be written to a
	// memtable or sstable entry.
	InternalKeyKindValueForSeek InternalKeyKind = 0xff
)

func (k InternalKeyKind) String() string {
	switch k {
	case InternalKeyKindValue:
		return "SET"
	case InternalKeyKindDelete:
		return "DEL"
	case InternalKeyKindValueForSeek:
		return "SEEK"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// InternalKeyTrailer packs a 56-bit sequence number and an 8-bit kind into a
// single uint64: (seqNum << 8) | kind. Internal keys sort by ascending user
// key, then by *descending* trailer, so that for equal user keys, higher
// sequence numbers (and among those, larger kinds) come first.
type InternalKeyTrailer uint64

// MakeTrailer packs a sequence number and kind into a trailer.
func MakeTrailer(seqNum SeqNum, kind InternalKeyKind) InternalKeyTrailer {
	return (InternalKeyTrailer(seqNum) << 8) | InternalKeyTrailer(kind)
}

// SeqNum extracts the sequence number component of the trailer.
func (t InternalKeyTrailer) SeqNum() SeqNum {
	return SeqNum(t >> 8)
}

// Kind extracts the key-kind component of the trailer.
func (t InternalKeyTrailer) Kind() InternalKeyKind {
	return InternalKeyKind(t & 0xff)
}

func (t InternalKeyTrailer) String() string {
	return fmt.Sprintf("#%s,%s", t.SeqNum(), t.Kind())
}

// InternalTrailerLen is the number of bytes an encoded trailer occupies.
const InternalTrailerLen = 8

// InternalKey is a user key with an appended (sequence number, kind) tag,
// per spec §3: user_key ‖ u64_le((sequence << 8) | type). It orders by
// ascending user key, then descending sequence, then descending kind.
type InternalKey struct {
	UserKey []byte
	Trailer InternalKeyTrailer
}

// MakeInternalKey builds an InternalKey from its parts.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, Trailer: MakeTrailer(seqNum, kind)}
}

// MakeSearchKey builds an internal key suitable for seeking to the first
// entry with the given user key, regardless of its sequence number: it
// carries the tag (SeqNumMax, InternalKeyKindValueForSeek), which sorts
// before every real trailer for the same user key.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindValueForSeek)
}

// SeqNum returns the key's sequence number.
func (k InternalKey) SeqNum() SeqNum { return k.Trailer.SeqNum() }

// Kind returns the key's kind.
func (k InternalKey) Kind() InternalKeyKind { return k.Trailer.Kind() }

// Size returns the number of bytes Encode will write.
func (k InternalKey) Size() int {
	return len(k.UserKey) + InternalTrailerLen
}

// Encode writes the user key followed by the little-endian trailer into buf,
// which must be at least k.Size() bytes.
func (k InternalKey) Encode(buf []byte) {
	i := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[i:], uint64(k.Trailer))
}

// DecodeInternalKey parses an internal key previously written by Encode. The
// returned UserKey aliases encodedKey.
func DecodeInternalKey(encodedKey []byte) InternalKey {
	n := len(encodedKey) - InternalTrailerLen
	if n < 0 {
		return InternalKey{}
	}
	trailer := InternalKeyTrailer(binary.LittleEndian.Uint64(encodedKey[n:]))
	return InternalKey{UserKey: encodedKey[:n:n], Trailer: trailer}
}

// Clone returns a deep copy of k.
func (k InternalKey) Clone() InternalKey {
	if len(k.UserKey) == 0 {
		return k
	}
	u := make([]byte, len(k.UserKey))
	copy(u, k.UserKey)
	return InternalKey{UserKey: u, Trailer: k.Trailer}
}

func (k InternalKey) String() string {
	return fmt.Sprintf("%s%s", FormatBytes(k.UserKey), k.Trailer)
}

// InternalCompare orders two internal keys: ascending by user key under
// userCmp, then descending by trailer for equal user keys (spec §3, §4.11).
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	if x := userCmp(a.UserKey, b.UserKey); x != 0 {
		return x
	}
	return cmp.Compare(b.Trailer, a.Trailer)
}

// FormatBytes renders a byte slice for diagnostics, matching the
// %q-with-escapes convention used across the corpus for arbitrary user keys.
func FormatBytes(b []byte) fmt.Formatter {
	return bytesFormatter(b)
}

type bytesFormatter []byte

func (b bytesFormatter) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%q", []byte(b))
}
