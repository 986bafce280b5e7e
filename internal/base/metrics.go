// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the Prometheus instrumentation shared by the WAL writer and
// the block cache, following the pattern commit_test.go uses to construct a
// Metrics literal with prometheus.NewHistogram for WALFsyncLatency.
type Metrics struct {
	// WALFsyncLatency observes the latency of each WAL append's terminal
	// flush/sync call.
	WALFsyncLatency prometheus.Histogram
	// WALBytesWritten counts bytes written to WAL physical blocks,
	// including header and padding overhead.
	WALBytesWritten prometheus.Counter
	// CacheHits and CacheMisses count sharded block-cache lookups.
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	// MemTableBytes reports the arena bytes consumed by the active
	// memtable.
	MemTableBytes prometheus.Gauge
}

// NewMetrics constructs a Metrics with freshly registered (but
// unregistered-with-any-registry) collectors, suitable for embedding in an
// Options or passing directly to the WAL writer / cache constructors.
func NewMetrics() *Metrics {
	return &Metrics{
		WALFsyncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wal_fsync_latency_seconds",
			Help:    "Latency of WAL record append fsync calls.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		WALBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wal_bytes_written_total",
			Help: "Bytes written to WAL physical blocks.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "block_cache_hits_total",
			Help: "Block cache lookups that found a cached block.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "block_cache_misses_total",
			Help: "Block cache lookups that did not find a cached block.",
		}),
		MemTableBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memtable_arena_bytes",
			Help: "Bytes consumed by the active memtable's arena.",
		}),
	}
}
