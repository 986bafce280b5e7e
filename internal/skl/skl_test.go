// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package skl

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndContains(t *testing.T) {
	s := New(bytes.Compare, 1)
	keys := []string{"c", "a", "e", "b", "d"}
	for _, k := range keys {
		s.Insert([]byte(k))
	}
	for _, k := range keys {
		require.True(t, s.Contains([]byte(k)))
	}
	require.False(t, s.Contains([]byte("z")))
}

func TestIteratorVisitsKeysInOrder(t *testing.T) {
	s := New(bytes.Compare, 2)
	want := []string{"a", "b", "c", "d", "e", "f", "g"}
	shuffled := append([]string(nil), want...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for _, k := range shuffled {
		s.Insert([]byte(k))
	}

	var got []string
	it := s.NewIterator()
	for it.First(); it.Valid(); it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, want, got)
}

func TestIteratorPrevMirrorsNext(t *testing.T) {
	s := New(bytes.Compare, 4)
	for _, k := range []string{"a", "b", "c", "d"} {
		s.Insert([]byte(k))
	}

	it := s.NewIterator()
	it.Last()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Prev()
	}
	require.Equal(t, []string{"d", "c", "b", "a"}, got)
}

func TestSeekGEAndSeekLT(t *testing.T) {
	s := New(bytes.Compare, 5)
	for _, k := range []string{"b", "d", "f", "h"} {
		s.Insert([]byte(k))
	}

	it := s.NewIterator()
	it.SeekGE([]byte("e"))
	require.True(t, it.Valid())
	require.Equal(t, "f", string(it.Key()))

	it.SeekGE([]byte("z"))
	require.False(t, it.Valid())

	it.SeekLT([]byte("e"))
	require.True(t, it.Valid())
	require.Equal(t, "d", string(it.Key()))

	it.SeekLT([]byte("a"))
	require.False(t, it.Valid())
}

// TestConcurrentReadDuringInsert exercises the single-writer/many-reader
// contract: a reader repeatedly scanning the list from the head must never
// observe a torn or partially linked node while Insert runs concurrently.
func TestConcurrentReadDuringInsert(t *testing.T) {
	s := New(bytes.Compare, 6)
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.Insert([]byte(fmt.Sprintf("key-%05d", i)))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			var prev []byte
			it := s.NewIterator()
			for it.First(); it.Valid(); it.Next() {
				require.True(t, prev == nil || bytes.Compare(prev, it.Key()) < 0,
					"iterator observed keys out of order")
				prev = it.Key()
			}
		}
	}()

	wg.Wait()
	require.True(t, s.Contains([]byte(fmt.Sprintf("key-%05d", n-1))))
}

func TestRandomHeightStaysWithinBounds(t *testing.T) {
	s := New(bytes.Compare, 7)
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		h := s.randomHeight()
		require.GreaterOrEqual(t, h, 1)
		require.LessOrEqual(t, h, maxHeight)
		seen[h] = true
	}
	// With 10000 draws at branching probability 1/4, every height from 1
	// through at least 5 should have been observed at least once.
	for h := 1; h <= 5; h++ {
		require.True(t, seen[h], "height %d was never produced", h)
	}
}

func TestInsertManyKeysStaySorted(t *testing.T) {
	s := New(bytes.Compare, 8)
	var keys []string
	for i := 0; i < 500; i++ {
		keys = append(keys, fmt.Sprintf("k%04d", i))
	}
	shuffled := append([]string(nil), keys...)
	rand.New(rand.NewSource(9)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for _, k := range shuffled {
		s.Insert([]byte(k))
	}

	sort.Strings(keys)
	var got []string
	it := s.NewIterator()
	for it.First(); it.Valid(); it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, keys, got)
}
