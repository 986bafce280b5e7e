// Copyright 2023 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

// hitRateSeries accumulates a running cache hit rate sampled once per
// synthetic access, so a benchmark run can be plotted as a curve rather
// than reported as a single end-of-run number. Adapted from the shape of
// replay's SampledMetric, dropping the wall-clock bucketing that package
// needs (a benchmark runs fast enough that access count is itself an
// adequate x-axis).
type hitRateSeries struct {
	hits, total int
	values      []float64
}

func (s *hitRateSeries) record(hit bool) {
	s.total++
	if hit {
		s.hits++
	}
	s.values = append(s.values, float64(s.hits)/float64(s.total))
}

// downsample returns at most width evenly spaced samples, so a run of many
// thousands of accesses still plots as a readable-width graph.
func (s *hitRateSeries) downsample(width int) []float64 {
	if len(s.values) <= width {
		return s.values
	}
	out := make([]float64, width)
	stride := float64(len(s.values)) / float64(width)
	for i := range out {
		out[i] = s.values[int(float64(i)*stride)]
	}
	return out
}
