// stats.go: hit, miss, load and eviction accounting
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "github.com/agilira/xanthos/internal/util"

// StatsCounter accumulates cache statistics. Implementations must be safe
// for concurrent use and fast enough for the read hot path; adapters exist
// for Prometheus (metrics/prom) and OpenTelemetry (otel).
type StatsCounter interface {
	// RecordHits records count cache hits.
	RecordHits(count int)

	// RecordMisses records count cache misses.
	RecordMisses(count int)

	// RecordLoadSuccess records one successful load taking loadTime nanoseconds.
	RecordLoadSuccess(loadTime int64)

	// RecordLoadFailure records one failed load taking loadTime nanoseconds.
	RecordLoadFailure(loadTime int64)

	// RecordEviction records the eviction of an entry of the given weight.
	RecordEviction(weight int)

	// Snapshot returns a consistent-enough view of the accumulated counters.
	Snapshot() CacheStats
}

// CacheStats is a point-in-time view of cache performance.
type CacheStats struct {
	Hits           uint64
	Misses         uint64
	LoadSuccesses  uint64
	LoadFailures   uint64
	TotalLoadTime  int64
	Evictions      uint64
	EvictionWeight uint64
}

// RequestCount returns the number of lookups, hit or miss.
func (s CacheStats) RequestCount() uint64 {
	return s.Hits + s.Misses
}

// HitRatio returns the cache hit ratio as a percentage (0-100).
// Returns 0.0 if no lookups have been recorded yet.
func (s CacheStats) HitRatio() float64 {
	total := s.RequestCount()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// AverageLoadPenalty returns the mean load time in nanoseconds.
func (s CacheStats) AverageLoadPenalty() float64 {
	loads := s.LoadSuccesses + s.LoadFailures
	if loads == 0 {
		return 0
	}
	return float64(s.TotalLoadTime) / float64(loads)
}

// concurrentStatsCounter is the default StatsCounter when RecordStats is
// enabled. Counters are padded so concurrent readers on different cores do
// not share cache lines.
type concurrentStatsCounter struct {
	hits           util.PaddedAtomicUint64
	misses         util.PaddedAtomicUint64
	loadSuccesses  util.PaddedAtomicUint64
	loadFailures   util.PaddedAtomicUint64
	totalLoadTime  util.PaddedAtomicInt64
	evictions      util.PaddedAtomicUint64
	evictionWeight util.PaddedAtomicUint64
}

func newConcurrentStatsCounter() *concurrentStatsCounter {
	return &concurrentStatsCounter{}
}

// NewStatsCounter returns the default concurrent StatsCounter. Metric
// adapters embed it so Snapshot stays available alongside the exported
// backend.
func NewStatsCounter() StatsCounter {
	return newConcurrentStatsCounter()
}

func (c *concurrentStatsCounter) RecordHits(count int) {
	c.hits.Add(uint64(count))
}

func (c *concurrentStatsCounter) RecordMisses(count int) {
	c.misses.Add(uint64(count))
}

func (c *concurrentStatsCounter) RecordLoadSuccess(loadTime int64) {
	c.loadSuccesses.Add(1)
	c.totalLoadTime.Add(loadTime)
}

func (c *concurrentStatsCounter) RecordLoadFailure(loadTime int64) {
	c.loadFailures.Add(1)
	c.totalLoadTime.Add(loadTime)
}

func (c *concurrentStatsCounter) RecordEviction(weight int) {
	c.evictions.Add(1)
	c.evictionWeight.Add(uint64(weight))
}

func (c *concurrentStatsCounter) Snapshot() CacheStats {
	return CacheStats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		LoadSuccesses:  c.loadSuccesses.Load(),
		LoadFailures:   c.loadFailures.Load(),
		TotalLoadTime:  c.totalLoadTime.Load(),
		Evictions:      c.evictions.Load(),
		EvictionWeight: c.evictionWeight.Load(),
	}
}

// disabledStatsCounter is used when RecordStats is off; every method is a
// no-op the compiler can inline away.
type disabledStatsCounter struct{}

func (disabledStatsCounter) RecordHits(int)          {}
func (disabledStatsCounter) RecordMisses(int)        {}
func (disabledStatsCounter) RecordLoadSuccess(int64) {}
func (disabledStatsCounter) RecordLoadFailure(int64) {}
func (disabledStatsCounter) RecordEviction(int)      {}
func (disabledStatsCounter) Snapshot() CacheStats    { return CacheStats{} }

var (
	_ StatsCounter = (*concurrentStatsCounter)(nil)
	_ StatsCounter = disabledStatsCounter{}
)
