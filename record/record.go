// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package record reads and writes the write-ahead log's physical framing:
// spec §4.5 and §6 describe a stream divided into fixed 32KiB blocks, each
// packed with chunks that never cross a block boundary. A logical record
// maps to one or more chunks (Full, or First/Middle.../Last for a record
// too large to fit the remaining space in a block); any unused suffix of a
// block is zero-padded.
//
// This is a deliberately smaller package than the corpus's: the retrieved
// record.go additionally supports a "recyclable" chunk format (an extra
// 4-byte log-number field enabling log file reuse to avoid metadata
// churn) and a "WAL sync" format layering a promised-synced-offset field
// on top of that, both aimed at file-system and cloud-storage
// optimizations this store's WAL doesn't need. Only the legacy chunk
// format survives here, matching spec §6 exactly; see DESIGN.md for the
// justification.
package record

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/crc"
)

// These constants are part of the wire format and must not change.
const (
	chunkTypeZero   = 0
	chunkTypeFull   = 1
	chunkTypeFirst  = 2
	chunkTypeMiddle = 3
	chunkTypeLast   = 4
)

const (
	// BlockSize is the fixed physical block size spec §4.5 and §6 name.
	BlockSize  = base.WALBlockSize
	headerSize = 7 // masked CRC32C (4B) ++ length (2B LE) ++ type (1B)
)

// Writer appends logical records to an underlying writer as a sequence of
// legacy-format chunks, matching spec §4.5's "append_record" operation. It
// is not safe for concurrent use, mirroring the single-writer discipline
// spec §5 requires of the WAL as a whole.
type Writer struct {
	w       io.Writer
	syncer  base.Syncer
	metrics *base.Metrics
	// off is the number of bytes already written into the current
	// physical block.
	off int
}

// NewWriter wraps w. If w also implements base.Syncer, Sync will call
// through to it; metrics may be nil.
func NewWriter(w io.Writer, metrics *base.Metrics) *Writer {
	wr := &Writer{w: w, metrics: metrics}
	if s, ok := w.(base.Syncer); ok {
		wr.syncer = s
	}
	return wr
}

// AppendRecord writes payload as one or more chunks, splitting it across
// physical block boundaries as needed. It never retains payload past the
// call.
func (w *Writer) AppendRecord(payload []byte) error {
	first := true
	for {
		if BlockSize-w.off < headerSize {
			if err := w.padBlock(); err != nil {
				return err
			}
		}
		avail := BlockSize - w.off - headerSize
		n := len(payload)
		last := true
		if n > avail {
			n = avail
			last = false
		}

		var typ byte
		switch {
		case first && last:
			typ = chunkTypeFull
		case first:
			typ = chunkTypeFirst
		case last:
			typ = chunkTypeLast
		default:
			typ = chunkTypeMiddle
		}
		if err := w.writeChunk(typ, payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
		first = false
		if last {
			return nil
		}
	}
}

func (w *Writer) writeChunk(typ byte, payload []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(payload)))
	header[6] = typ

	checksum := crc.New([]byte{typ})
	checksum = crc.Update(checksum.Value(), payload)
	binary.LittleEndian.PutUint32(header[:4], checksum.Mask())

	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return err
		}
	}
	w.off += headerSize + len(payload)
	if w.metrics != nil {
		w.metrics.WALBytesWritten.Add(float64(headerSize + len(payload)))
	}
	if w.off == BlockSize {
		w.off = 0
	}
	return nil
}

// padBlock zero-fills the remainder of the current block (spec §6: "any
// unused suffix of a block is zeroed") and resets the block offset.
func (w *Writer) padBlock() error {
	n := BlockSize - w.off
	if n > 0 {
		var zeros [headerSize]byte // n is always < headerSize when this is called
		if _, err := w.w.Write(zeros[:n]); err != nil {
			return err
		}
	}
	w.off = 0
	return nil
}

// Sync flushes any OS-level buffering for durability, timing the call in
// WALFsyncLatency when metrics were provided.
func (w *Writer) Sync() error {
	if w.syncer == nil {
		return nil
	}
	if w.metrics == nil {
		return w.syncer.Sync()
	}
	timer := prometheusTimer(w.metrics)
	err := w.syncer.Sync()
	timer()
	return err
}

// Reader reassembles logical records written by Writer, per spec §4.5's
// "read_record" operation. A corrupted chunk is reported to Reporter (when
// non-nil) rather than treated as fatal, and reading resumes at the start
// of the next physical block, mirroring the corpus's tolerant WAL replay.
//
// A Reader constructed with a positive initial offset (NewReaderAt) enters
// resync mode: it skips forward to the physical block containing that
// offset and silently discards any Middle or Last chunk it meets before
// the next First or Full chunk, since such a chunk necessarily belongs to
// a record whose earlier fragments were skipped over and so can never be
// reassembled. This mirrors log_reader.cc's initial_offset_/resyncing_.
type Reader struct {
	r        io.Reader
	Reporter base.CorruptionReporter

	buf        [BlockSize]byte
	begin, end int // buf[begin:end] holds unconsumed bytes of the current block
	eof        bool

	record []byte // accumulator for a record's fragments

	initialOffset     int64
	skippedToInitial  bool
	resyncing         bool
	endOfBufferOffset int64
	lastRecordOffset  int64
}

// NewReader wraps r for a scan starting at the beginning of the stream.
func NewReader(r io.Reader) *Reader {
	return NewReaderAt(r, 0)
}

// NewReaderAt wraps r for a scan that resumes at approximately
// initialOffset, per spec §4.5's resync mode. The first ReadRecord call
// skips forward to the start of the physical block containing
// initialOffset; any Middle or Last chunk encountered before the next
// First or Full chunk is discarded rather than reported, and any
// corruption whose offset falls before initialOffset is suppressed
// entirely, following log_reader.cc's ReportDrop gating.
func NewReaderAt(r io.Reader, initialOffset int64) *Reader {
	return &Reader{
		r:             r,
		initialOffset: initialOffset,
		resyncing:     initialOffset > 0,
	}
}

// LastRecordOffset returns the file offset at which the most recently
// returned record's first physical chunk began, the "last_record_offset"
// operation spec §6 names. It is zero until ReadRecord has returned a
// record at least once.
func (r *Reader) LastRecordOffset() int64 {
	return r.lastRecordOffset
}

// ReadRecord returns the next logical record's payload, or io.EOF once the
// stream is exhausted. The returned slice is invalidated by the next call
// to ReadRecord.
func (r *Reader) ReadRecord() ([]byte, error) {
	if !r.skippedToInitial {
		r.skippedToInitial = true
		if err := r.skipToInitialBlock(); err != nil {
			return nil, err
		}
	}

	r.record = r.record[:0]
	inFragment := false
	var recordOffset int64
	for {
		typ, payload, offset, err := r.nextChunk()
		if err == io.EOF {
			// A dangling fragment at end of stream is dropped silently, not
			// reported as corruption: the writer may simply not have gotten
			// around to writing the Last chunk before the process stopped.
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		if r.resyncing {
			switch typ {
			case chunkTypeMiddle:
				continue
			case chunkTypeLast:
				r.resyncing = false
				continue
			default:
				r.resyncing = false
			}
		}

		switch typ {
		case chunkTypeFull:
			if inFragment {
				r.corrupt(offset, int64(len(payload)), errors.New("record: full chunk while assembling a fragment"))
				inFragment = false
			}
			r.lastRecordOffset = offset
			return payload, nil
		case chunkTypeFirst:
			if inFragment {
				r.corrupt(offset, int64(len(payload)), errors.New("record: first chunk while assembling a fragment"))
			}
			r.record = append(r.record[:0], payload...)
			inFragment = true
			recordOffset = offset
		case chunkTypeMiddle:
			if !inFragment {
				r.corrupt(offset, int64(len(payload)), errors.New("record: middle chunk with no preceding first chunk"))
				continue
			}
			r.record = append(r.record, payload...)
		case chunkTypeLast:
			if !inFragment {
				r.corrupt(offset, int64(len(payload)), errors.New("record: last chunk with no preceding first chunk"))
				continue
			}
			r.record = append(r.record, payload...)
			r.lastRecordOffset = recordOffset
			return r.record, nil
		case chunkTypeZero:
			// nextChunk already reported the corruption that produced this
			// pseudo-chunk; a fragment being assembled cannot be trusted to
			// resume cleanly, so drop it and keep scanning.
			if inFragment {
				inFragment = false
				r.record = r.record[:0]
			}
		default:
			r.corrupt(offset, int64(len(payload)), errors.Newf("record: invalid chunk type %d", typ))
		}
	}
}

// skipToInitialBlock fast-forwards r past every physical block that lies
// entirely before the block containing initialOffset, mirroring
// log_reader.cc's SkipToInitialBlock. A chunk header never starts within
// the last headerSize-1 bytes of a block (the writer pads instead), so an
// initialOffset landing there targets the following block.
func (r *Reader) skipToInitialBlock() error {
	offsetInBlock := r.initialOffset % BlockSize
	blockStart := r.initialOffset - offsetInBlock
	if offsetInBlock > BlockSize-headerSize+1 {
		blockStart += BlockSize
	}
	r.endOfBufferOffset = blockStart
	if blockStart == 0 {
		return nil
	}
	if seeker, ok := r.r.(io.Seeker); ok {
		_, err := seeker.Seek(blockStart, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r.r, blockStart)
	return err
}

// nextChunk reads and validates one physical chunk, refilling buf from r as
// needed, and reports the file offset at which the chunk's header began.
// On checksum or length corruption it reports through Reporter and
// resynchronizes at the next block boundary, then returns a chunkTypeZero
// pseudo-chunk so the caller's loop continues scanning. A short header or
// an over-long declared length at end of stream is treated as a truncated
// write, not corruption, per spec §4.5 step 2.
func (r *Reader) nextChunk() (typ byte, payload []byte, offset int64, err error) {
	for r.end-r.begin < headerSize {
		if r.eof {
			// Fewer than headerSize bytes remain and nothing more is
			// coming: a torn write at the very end of the log, not
			// corruption. Discard the stale leftover rather than parsing a
			// header out of it.
			r.begin = r.end
			return 0, nil, 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, nil, 0, err
		}
	}
	header := r.buf[r.begin : r.begin+headerSize]
	length := int(binary.LittleEndian.Uint16(header[4:6]))
	chunkTyp := header[6]
	maskedCRC := binary.LittleEndian.Uint32(header[:4])

	if r.end-r.begin < headerSize+length {
		drop := int64(r.end - r.begin)
		position := r.endOfBufferOffset - drop
		r.begin = r.end
		if r.eof {
			return 0, nil, 0, io.EOF
		}
		r.corrupt(position, drop, errors.New("record: chunk length exceeds remaining block"))
		return chunkTypeZero, nil, 0, nil
	}

	chunkOffset := r.endOfBufferOffset - int64(r.end-r.begin)
	payload = r.buf[r.begin+headerSize : r.begin+headerSize+length]
	wantCRC := crc.Unmask(maskedCRC)
	gotCRC := crc.New([]byte{chunkTyp})
	gotCRC = crc.Update(gotCRC.Value(), payload)
	if gotCRC.Value() != wantCRC {
		drop := int64(r.end - r.begin)
		position := r.endOfBufferOffset - drop
		r.begin = r.end // resync at the next block
		r.corrupt(position, drop, errors.New("record: checksum mismatch"))
		return chunkTypeZero, nil, 0, nil
	}

	r.begin += headerSize + length
	return chunkTyp, payload, chunkOffset, nil
}

// fill reads one more physical block from r into buf, discarding any
// unconsumed (necessarily zero-padding) bytes of the previous block. eof
// latches once a short (or empty) read is seen, since io.Reader never un-
// exhausts itself.
func (r *Reader) fill() error {
	n, err := io.ReadFull(r.r, r.buf[:])
	switch err {
	case nil:
		r.begin, r.end = 0, n
		r.endOfBufferOffset += int64(n)
		return nil
	case io.ErrUnexpectedEOF:
		// A short final block: legal, since the last block need not be
		// full-sized (spec §6).
		r.begin, r.end = 0, n
		r.eof = true
		r.endOfBufferOffset += int64(n)
		if n == 0 {
			return io.EOF
		}
		return nil
	case io.EOF:
		r.begin, r.end = 0, 0
		r.eof = true
		return io.EOF
	default:
		return err
	}
}

// corrupt reports err through Reporter, unless position falls before
// initialOffset: a caller that resumed reading from a known-good point has
// no use for a report about damage it deliberately skipped past, mirroring
// log_reader.cc's ReportDrop gate. dropped is the byte count passed to the
// Reporter.
func (r *Reader) corrupt(position, dropped int64, err error) {
	if r.Reporter == nil {
		return
	}
	if position >= r.initialOffset {
		r.Reporter.Report(dropped, err)
	}
}

func prometheusTimer(m *base.Metrics) func() {
	if m == nil || m.WALFsyncLatency == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.WALFsyncLatency.Observe(time.Since(start).Seconds())
	}
}
