// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	c := New(1<<20, 4, nil)
	k := Key{FileNum: 1, Offset: 100}
	h := c.Insert(k, []byte("block-data"), 10)
	require.Equal(t, "block-data", string(h.Value()))
	c.Release(h)

	h2 := c.Get(k)
	require.NotNil(t, h2)
	require.Equal(t, "block-data", string(h2.Value()))
	c.Release(h2)

	require.Nil(t, c.Get(Key{FileNum: 1, Offset: 200}))
}

func TestEvictionRespectsInUseHandles(t *testing.T) {
	c := New(1, 1, nil)
	k1 := Key{FileNum: 1, Offset: 0}
	h1 := c.Insert(k1, []byte("a"), 1)

	k2 := Key{FileNum: 1, Offset: 1}
	c.Insert(k2, []byte("b"), 1)
	c.Release(c.Get(k2))

	// h1 is still held, so its value must stay readable through the handle
	// even though the shard's capacity has been exceeded, matching leveldb's
	// invariant that referenced entries are never evicted.
	require.Equal(t, "a", string(h1.Value()))
	c.Release(h1)
}

func TestEraseAndPrune(t *testing.T) {
	c := New(1<<20, 2, nil)
	for i := 0; i < 10; i++ {
		k := Key{FileNum: uint64(i)}
		c.Release(c.Insert(k, []byte(fmt.Sprintf("v%d", i)), 1))
	}
	require.Equal(t, int64(10), c.TotalCharge())

	c.Erase(Key{FileNum: 3})
	require.Nil(t, c.Get(Key{FileNum: 3}))

	c.Prune()
	require.Equal(t, int64(0), c.TotalCharge())
}

func TestNewIDIsMonotonic(t *testing.T) {
	c := New(1024, 1, nil)
	a, b := c.NewID(), c.NewID()
	require.Less(t, a, b)
}
