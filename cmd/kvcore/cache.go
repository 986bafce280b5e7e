// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/cache"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	var capacityMB int64
	var shards int
	var accesses int
	var keyspace int

	bench := &cobra.Command{
		Use:   "bench",
		Short: "run a synthetic Zipfian access pattern and plot the hit rate",
		Long: `
Drives the sharded block cache with a synthetic workload (a Zipfian key
distribution over a fixed keyspace, biased toward the lowest-numbered blocks)
and prints the running hit rate as an ASCII graph, the way a compaction
picker's read amplification would be eyeballed from a metrics dashboard.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheBench(cmd, capacityMB<<20, shards, accesses, keyspace)
		},
	}
	bench.Flags().Int64Var(&capacityMB, "capacity-mb", 8, "cache capacity in MiB")
	bench.Flags().IntVar(&shards, "shards", base.DefaultCacheShards, "number of cache shards")
	bench.Flags().IntVar(&accesses, "accesses", 20000, "number of synthetic block accesses")
	bench.Flags().IntVar(&keyspace, "keyspace", 5000, "number of distinct blocks in the workload")

	root := &cobra.Command{
		Use:   "cache",
		Short: "block cache introspection tools",
	}
	root.AddCommand(bench)
	return root
}

func runCacheBench(cmd *cobra.Command, capacity int64, shards, accesses, keyspace int) error {
	c := cache.New(capacity, shards, nil)
	zipf := rand.NewZipf(rand.New(rand.NewSource(1)), 1.1, 1, uint64(keyspace-1))

	series := &hitRateSeries{}
	// latency is nanoseconds-per-access; the histogram exists to show that
	// contention (or lack of it) across shards, not raw cache speed, which
	// is dwarfed by the synthetic workload's own overhead at this scale.
	latency := hdrhistogram.New(1, 1_000_000_000, 3)
	for i := 0; i < accesses; i++ {
		key := cache.Key{FileNum: 1, Offset: zipf.Uint64()}

		start := time.Now()
		h := c.Get(key)
		hit := h != nil
		if hit {
			c.Release(h)
		} else {
			c.Release(c.Insert(key, make([]byte, 4096), 4096))
		}
		_ = latency.RecordValue(int64(time.Since(start)))
		series.record(hit)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "final hit rate: %.2f%% over %d accesses (capacity %d bytes, %d shards)\n",
		series.values[len(series.values)-1]*100, accesses, capacity, shards)
	fmt.Fprintf(cmd.OutOrStdout(), "per-access latency: mean %s p50 %s p90 %s p99 %s\n",
		time.Duration(latency.Mean()), time.Duration(latency.ValueAtPercentile(50)),
		time.Duration(latency.ValueAtPercentile(90)), time.Duration(latency.ValueAtPercentile(99)))
	fmt.Fprintln(cmd.OutOrStdout(), asciigraph.Plot(series.downsample(120), asciigraph.Height(12)))
	return nil
}
