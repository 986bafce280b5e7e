// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)

	records := []string{"", "a", strings.Repeat("b", 100), strings.Repeat("c", BlockSize*3)}
	for _, s := range records {
		require.NoError(t, w.AppendRecord([]byte(s)))
	}

	r := NewReader(&buf)
	for _, want := range records {
		got, err := r.ReadRecord()
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
	_, err := r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterPadsBlockBoundary(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)

	// A payload sized so the header alone doesn't fit in what's left of the
	// first block forces a pad-and-roll to the next block.
	payload := bytes.Repeat([]byte{'x'}, BlockSize-headerSize-3)
	require.NoError(t, w.AppendRecord(payload))
	require.NoError(t, w.AppendRecord([]byte("next block")))

	require.True(t, buf.Len() > BlockSize, "expected the second record to start a new block")

	r := NewReader(&buf)
	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, payload, got)

	got, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "next block", string(got))
}

func TestReaderReportsCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)
	// Nearly fill the first block so "world" is forced into a fresh block;
	// corruption discards the rest of a suspect block, not just one chunk.
	first := bytes.Repeat([]byte{'h'}, BlockSize-headerSize-5)
	require.NoError(t, w.AppendRecord(first))
	require.NoError(t, w.AppendRecord([]byte("world")))

	corrupted := buf.Bytes()
	// Flip a byte inside the first record's payload, which invalidates its
	// checksum without changing its declared length.
	corrupted[headerSize] ^= 0xff

	var drops []int64
	r := NewReader(bytes.NewReader(corrupted))
	r.Reporter = reporterFunc(func(dropped int64, err error) { drops = append(drops, dropped) })

	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "world", string(got))
	require.NotEmpty(t, drops)
}

type reporterFunc func(dropped int64, err error)

func (f reporterFunc) Report(dropped int64, err error) { f(dropped, err) }

func TestReaderTruncatedPayloadIsSilentEOF(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)
	require.NoError(t, w.AppendRecord([]byte("hello")))
	require.NoError(t, w.AppendRecord([]byte("world")))

	// Simulate a crash mid-write: truncate away most of the second
	// record's payload, leaving only its header and a couple of bytes.
	truncated := buf.Bytes()[:2*headerSize+5+2]

	var drops []int64
	r := NewReader(bytes.NewReader(truncated))
	r.Reporter = reporterFunc(func(dropped int64, err error) { drops = append(drops, dropped) })

	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	_, err = r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
	require.Empty(t, drops, "a truncated final chunk must not be reported as corruption")
}

func TestReaderAtResyncsAndSuppressesLeadingFragments(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)
	// Force "big" to fragment across a block boundary so a resync starting
	// partway through has a dangling Middle/Last to discard.
	big := bytes.Repeat([]byte{'x'}, BlockSize+100)
	require.NoError(t, w.AppendRecord(big))
	require.NoError(t, w.AppendRecord([]byte("second")))
	require.NoError(t, w.AppendRecord([]byte("third")))

	full := buf.Bytes()

	var drops []int64
	r := NewReaderAt(bytes.NewReader(full), int64(BlockSize))
	r.Reporter = reporterFunc(func(dropped int64, err error) { drops = append(drops, dropped) })

	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
	require.Empty(t, drops, "the discarded Last fragment must not be reported as corruption")

	got, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "third", string(got))

	_, err = r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
}

func TestLastRecordOffsetTracksMostRecentRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)
	require.NoError(t, w.AppendRecord([]byte("first")))
	secondOffset := int64(buf.Len())
	require.NoError(t, w.AppendRecord([]byte("second")))

	r := NewReader(&buf)
	require.Equal(t, int64(0), r.LastRecordOffset())

	_, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, int64(0), r.LastRecordOffset())

	_, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, secondOffset, r.LastRecordOffset())
}
