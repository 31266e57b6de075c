// Copyright 2026 The Z6 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hist adapts github.com/HdrHistogram/hdrhistogram-go to the
// exact operation set spec.md §4.6 (component N) names: record_value,
// record_values, min, max, mean, value_at_percentile, total_count, and
// reset, over a fixed [1ns, 3.6e12ns] domain at 3 significant figures.
package hist

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyLowest, LatencyHighest, and LatencySigFigs are the reducer's
// fixed histogram domain from spec.md §4.6: nanoseconds, capped at one
// hour, three significant figures of accuracy.
const (
	LatencyLowest   = 1
	LatencyHighest  = 3_600_000_000_000
	LatencySigFigs  = 3
)

// Histogram is a bounded-memory latency histogram.
type Histogram struct {
	h             *hdrhistogram.Histogram
	lowest, highest int64
}

// New returns a Histogram over [lowest, highest] accurate to sigfigs
// significant figures, per spec.md §4.6.
func New(lowest, highest int64, sigfigs int) *Histogram {
	return &Histogram{h: hdrhistogram.New(lowest, highest, sigfigs), lowest: lowest, highest: highest}
}

// NewLatency returns a Histogram preconfigured for nanosecond request
// latencies, matching the reducer's domain exactly.
func NewLatency() *Histogram {
	return New(LatencyLowest, LatencyHighest, LatencySigFigs)
}

// RecordValue records a single observation, clamping to the
// histogram's configured range rather than erroring, since a single
// out-of-range sample must never abort a run already in progress.
func (h *Histogram) RecordValue(v int64) error {
	if err := h.h.RecordValue(v); err != nil {
		return h.h.RecordValue(clamp(v, h.lowest, h.highest))
	}
	return nil
}

// RecordValues records n occurrences of v in one call.
func (h *Histogram) RecordValues(v, n int64) error {
	if err := h.h.RecordValues(v, n); err != nil {
		return h.h.RecordValues(clamp(v, h.lowest, h.highest), n)
	}
	return nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (h *Histogram) Min() int64  { return h.h.Min() }
func (h *Histogram) Max() int64  { return h.h.Max() }
func (h *Histogram) Mean() float64 { return h.h.Mean() }

// ValueAtPercentile returns the value at percentile p (e.g. 99.9 for
// p999).
func (h *Histogram) ValueAtPercentile(p float64) int64 { return h.h.ValueAtPercentile(p) }

func (h *Histogram) TotalCount() int64 { return h.h.TotalCount() }

func (h *Histogram) Reset() { h.h.Reset() }
