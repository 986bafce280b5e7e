// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/cache"
	"github.com/cockroachdb/pebble-storage-core/sstable/filter"
	"github.com/stretchr/testify/require"
)

// memFile is a base.File backed by an in-memory buffer, standing in for
// *os.File in these tests the way pebble's vfs.MemFile does.
type memFile struct {
	buf []byte
}

func (f *memFile) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *memFile) Read(p []byte) (int, error) { return 0, io.EOF }

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(f.buf) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (f *memFile) Close() error { return nil }
func (f *memFile) Sync() error  { return nil }

// countingFile wraps a memFile to count the ReadAt calls a data block read
// makes, so tests can tell whether a Reader served a lookup from its block
// cache instead of the file.
type countingFile struct {
	*memFile
	reads int
}

func (f *countingFile) ReadAt(p []byte, off int64) (int, error) {
	f.reads++
	return f.memFile.ReadAt(p, off)
}

func buildTable(t *testing.T, opt *base.Options, n int) (*memFile, []base.InternalKey, []string) {
	t.Helper()
	opt = opt.EnsureDefaults()
	f := &memFile{}
	w := NewWriter(f, opt)

	var keys []base.InternalKey
	var values []string
	for i := 0; i < n; i++ {
		k := base.MakeInternalKey([]byte(fmt.Sprintf("key-%05d", i)), base.SeqNum(i+1), base.InternalKeyKindValue)
		v := fmt.Sprintf("value-%d", i)
		require.NoError(t, w.Add(k, []byte(v)))
		keys = append(keys, k)
		values = append(values, v)
	}
	require.NoError(t, w.Close())
	return f, keys, values
}

func TestWriterReaderRoundTrip(t *testing.T) {
	opt := &base.Options{FilterPolicy: filter.NewPolicy(10)}
	f, keys, values := buildTable(t, opt, 500)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	for i, k := range keys {
		v, kind, err := r.Get(k)
		require.NoError(t, err)
		require.Equal(t, base.InternalKeyKindValue, kind)
		require.Equal(t, values[i], string(v))
	}

	missing := base.MakeInternalKey([]byte("zzz-not-there"), base.SeqNumMax, base.InternalKeyKindValue)
	_, _, err = r.Get(missing)
	require.ErrorIs(t, err, base.ErrNotFound)
}

func TestReaderIteratorOrder(t *testing.T) {
	opt := &base.Options{}
	f, keys, values := buildTable(t, opt, 200)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	it := r.NewIterator()
	it.First()
	for i := 0; i < len(keys); i++ {
		require.True(t, it.Valid())
		require.True(t, bytes.Equal(it.Key().UserKey, keys[i].UserKey))
		require.Equal(t, values[i], string(it.Value()))
		it.Next()
	}
	require.False(t, it.Valid())
	require.NoError(t, it.Error())
}

func TestReaderIteratorSeekGE(t *testing.T) {
	opt := &base.Options{}
	f, keys, _ := buildTable(t, opt, 100)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekGE(keys[50])
	require.True(t, it.Valid())
	require.True(t, bytes.Equal(it.Key().UserKey, keys[50].UserKey))
}

func TestReaderIteratorBackward(t *testing.T) {
	opt := &base.Options{}
	f, keys, values := buildTable(t, opt, 500)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	it := r.NewIterator()
	it.Last()
	for i := len(keys) - 1; i >= 0; i-- {
		require.True(t, it.Valid())
		require.True(t, bytes.Equal(it.Key().UserKey, keys[i].UserKey))
		require.Equal(t, values[i], string(it.Value()))
		it.Prev()
	}
	require.False(t, it.Valid())
	require.NoError(t, it.Error())
}

func TestReaderIteratorSeekThenPrev(t *testing.T) {
	opt := &base.Options{}
	f, keys, _ := buildTable(t, opt, 500)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekGE(keys[250])
	require.True(t, it.Valid())
	require.True(t, bytes.Equal(it.Key().UserKey, keys[250].UserKey))

	it.Prev()
	require.True(t, it.Valid())
	require.True(t, bytes.Equal(it.Key().UserKey, keys[249].UserKey))
}

func TestReaderRejectsMismatchedComparator(t *testing.T) {
	f, _, _ := buildTable(t, &base.Options{}, 10)

	mismatched := *base.DefaultComparer
	mismatched.Name = "some.OtherComparator"
	other := (&base.Options{Comparer: &mismatched}).EnsureDefaults()

	_, err := NewReader(f, int64(len(f.buf)), other, nil)
	require.ErrorIs(t, err, base.ErrNotSupported)
}

func TestReaderCachesDataBlocks(t *testing.T) {
	opt := &base.Options{}
	f, keys, values := buildTable(t, opt, 500)
	cf := &countingFile{memFile: f}
	c := cache.New(1<<20, 4, nil)

	r, err := NewReader(cf, int64(len(f.buf)), opt.EnsureDefaults(), c)
	require.NoError(t, err)

	v, _, err := r.Get(keys[10])
	require.NoError(t, err)
	require.Equal(t, values[10], string(v))
	readsAfterFirst := cf.reads
	require.Greater(t, readsAfterFirst, 0)

	v, _, err = r.Get(keys[10])
	require.NoError(t, err)
	require.Equal(t, values[10], string(v))
	require.Equal(t, readsAfterFirst, cf.reads, "second Get of the same key must hit the block cache, not the file")
}

func TestFilterAvoidsFalseNegatives(t *testing.T) {
	opt := &base.Options{FilterPolicy: filter.NewPolicy(10)}
	f, keys, values := buildTable(t, opt, 2000)

	r, err := NewReader(f, int64(len(f.buf)), opt.EnsureDefaults(), nil)
	require.NoError(t, err)

	for i := 0; i < len(keys); i += 37 {
		v, _, err := r.Get(keys[i])
		require.NoError(t, err)
		require.Equal(t, values[i], string(v))
	}
}
