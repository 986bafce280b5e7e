// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package memtable

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func newTestMemtable() *Memtable {
	cmp := base.MakeInternalKeyComparer(base.DefaultComparer)
	return New(&cmp, 4<<10, 1)
}

func TestAddAndGet(t *testing.T) {
	m := newTestMemtable()
	m.Add(1, base.InternalKeyKindValue, []byte("a"), []byte("1"))
	m.Add(2, base.InternalKeyKindValue, []byte("b"), []byte("2"))
	m.Add(3, base.InternalKeyKindValue, []byte("a"), []byte("3"))
	m.Add(4, base.InternalKeyKindDelete, []byte("b"), nil)

	v, result := m.Get([]byte("a"), 5)
	require.Equal(t, Found, result)
	require.Equal(t, "3", string(v))

	// A read at a sequence number that predates the second write to "a"
	// must still see the first one.
	v, result = m.Get([]byte("a"), 1)
	require.Equal(t, Found, result)
	require.Equal(t, "1", string(v))

	_, result = m.Get([]byte("b"), 5)
	require.Equal(t, Deleted, result)

	_, result = m.Get([]byte("c"), 5)
	require.Equal(t, Missing, result)
}

// entryRecord is the plain-data projection of an Iterator position used to
// diff actual scan output against what was expected.
type entryRecord struct {
	UserKey string
	Seq     base.SeqNum
	Kind    base.InternalKeyKind
	Value   string
}

func TestIteratorOrdersByKeyThenDescendingSeq(t *testing.T) {
	m := newTestMemtable()
	m.Add(1, base.InternalKeyKindValue, []byte("b"), []byte("b1"))
	m.Add(2, base.InternalKeyKindValue, []byte("a"), []byte("a1"))
	m.Add(3, base.InternalKeyKindValue, []byte("a"), []byte("a2"))

	var got []entryRecord
	it := m.NewIterator()
	for it.First(); it.Valid(); it.Next() {
		k := it.Key()
		got = append(got, entryRecord{
			UserKey: string(k.UserKey),
			Seq:     k.SeqNum(),
			Kind:    k.Kind(),
			Value:   string(it.Value()),
		})
	}

	want := []entryRecord{
		{"a", 3, base.InternalKeyKindValue, "a2"},
		{"a", 2, base.InternalKeyKindValue, "a1"},
		{"b", 1, base.InternalKeyKindValue, "b1"},
	}
	if diff := pretty.Diff(want, got); diff != nil {
		t.Fatalf("iteration order mismatch:\n%s", fmt.Sprint(diff))
	}
}

func TestIteratorSeekGE(t *testing.T) {
	m := newTestMemtable()
	for i, k := range []string{"a", "c", "e", "g"} {
		m.Add(base.SeqNum(i+1), base.InternalKeyKindValue, []byte(k), []byte(k))
	}

	it := m.NewIterator()
	it.SeekGE([]byte("d"), base.SeqNumMax)
	require.True(t, it.Valid())
	require.Equal(t, "e", string(it.Key().UserKey))

	it.SeekGE([]byte("z"), base.SeqNumMax)
	require.False(t, it.Valid())
}

func TestMemoryUsageGrows(t *testing.T) {
	m := newTestMemtable()
	before := m.MemoryUsage()
	m.Add(1, base.InternalKeyKindValue, []byte("key"), []byte("value"))
	require.Greater(t, m.MemoryUsage(), before)
}

func TestRefUnrefTracksOutstandingReaders(t *testing.T) {
	m := newTestMemtable()
	require.Equal(t, int32(1), m.Refs())

	m.Ref() // flush consumer's reference
	require.Equal(t, int32(2), m.Refs())

	require.False(t, m.Unref()) // the caller's own reference
	require.True(t, m.Unref())  // the flush consumer's, now the last one
}

func TestUnrefBelowZeroPanics(t *testing.T) {
	m := newTestMemtable()
	require.True(t, m.Unref())
	require.Panics(t, func() { m.Unref() })
}

func TestMarkImmutableRejectsFurtherAdds(t *testing.T) {
	m := newTestMemtable()
	m.Add(1, base.InternalKeyKindValue, []byte("a"), []byte("1"))
	require.False(t, m.Immutable())

	m.MarkImmutable()
	require.True(t, m.Immutable())
	require.Panics(t, func() {
		m.Add(2, base.InternalKeyKindValue, []byte("b"), []byte("2"))
	})

	// Reads still work against an immutable memtable.
	v, result := m.Get([]byte("a"), base.SeqNumMax)
	require.Equal(t, Found, result)
	require.Equal(t, "1", string(v))
}
