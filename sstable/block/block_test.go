// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderReaderRoundTrip(t *testing.T) {
	b := NewBuilder(3)
	var keys, values [][]byte
	for i := 0; i < 20; i++ {
		k := []byte(fmt.Sprintf("key-%03d", i))
		v := []byte(fmt.Sprintf("value-%d", i))
		b.Add(k, v)
		keys = append(keys, k)
		values = append(values, v)
	}
	data := b.Finish()

	r, err := NewReader(data, bytes.Compare)
	require.NoError(t, err)

	it := r.NewIterator()
	it.First()
	for i := 0; i < len(keys); i++ {
		require.True(t, it.Valid())
		require.Equal(t, keys[i], it.Key())
		require.Equal(t, values[i], it.Value())
		it.Next()
	}
	require.False(t, it.Valid())
}

func TestReaderIteratorBackward(t *testing.T) {
	b := NewBuilder(3)
	var keys, values [][]byte
	for i := 0; i < 20; i++ {
		k := []byte(fmt.Sprintf("key-%03d", i))
		v := []byte(fmt.Sprintf("value-%d", i))
		b.Add(k, v)
		keys = append(keys, k)
		values = append(values, v)
	}
	data := b.Finish()

	r, err := NewReader(data, bytes.Compare)
	require.NoError(t, err)

	it := r.NewIterator()
	it.Last()
	for i := len(keys) - 1; i >= 0; i-- {
		require.True(t, it.Valid())
		require.Equal(t, keys[i], it.Key())
		require.Equal(t, values[i], it.Value())
		it.Prev()
	}
	require.False(t, it.Valid())
}

func TestReaderIteratorSeekThenPrev(t *testing.T) {
	b := NewBuilder(3)
	for i := 0; i < 20; i++ {
		b.Add([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}
	data := b.Finish()

	r, err := NewReader(data, bytes.Compare)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekGE([]byte("key-010"))
	require.True(t, it.Valid())
	require.Equal(t, "key-010", string(it.Key()))

	it.Prev()
	require.True(t, it.Valid())
	require.Equal(t, "key-009", string(it.Key()))

	it.First()
	it.Prev()
	require.False(t, it.Valid())
}

func TestReaderSeekGE(t *testing.T) {
	b := NewBuilder(4)
	for i := 0; i < 50; i += 2 {
		b.Add([]byte(fmt.Sprintf("k%04d", i)), []byte("v"))
	}
	data := b.Finish()
	r, err := NewReader(data, bytes.Compare)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekGE([]byte("k0025"))
	require.True(t, it.Valid())
	require.Equal(t, "k0026", string(it.Key()))

	it.SeekGE([]byte("k9999"))
	require.False(t, it.Valid())
}
