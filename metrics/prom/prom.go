// prom.go: Prometheus adapter for the cache stats counter
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package prom exports cache statistics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agilira/xanthos"
)

// Adapter implements xanthos.StatsCounter and exports Prometheus counters
// and histograms. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe. Snapshot is served from an internal atomic counter so the
// cache facade keeps working without scraping the registry.
type Adapter struct {
	inner xanthos.StatsCounter

	hits          prometheus.Counter
	misses        prometheus.Counter
	loads         *prometheus.CounterVec
	loadSeconds   prometheus.Histogram
	evictions     prometheus.Counter
	evictedWeight prometheus.Counter
}

// New constructs a Prometheus stats adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		inner: xanthos.NewStatsCounter(),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "loads_total",
				Help:        "Cache loads by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		loadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Cache load latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Cache evictions",
			ConstLabels: constLabels,
		}),
		evictedWeight: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evicted_weight_total",
			Help:        "Combined weight of evicted entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.loads, a.loadSeconds, a.evictions, a.evictedWeight)
	return a
}

// RecordHits implements xanthos.StatsCounter.
func (a *Adapter) RecordHits(count int) {
	a.inner.RecordHits(count)
	a.hits.Add(float64(count))
}

// RecordMisses implements xanthos.StatsCounter.
func (a *Adapter) RecordMisses(count int) {
	a.inner.RecordMisses(count)
	a.misses.Add(float64(count))
}

// RecordLoadSuccess implements xanthos.StatsCounter.
func (a *Adapter) RecordLoadSuccess(loadTime int64) {
	a.inner.RecordLoadSuccess(loadTime)
	a.loads.WithLabelValues("success").Inc()
	a.loadSeconds.Observe(float64(loadTime) / 1e9)
}

// RecordLoadFailure implements xanthos.StatsCounter.
func (a *Adapter) RecordLoadFailure(loadTime int64) {
	a.inner.RecordLoadFailure(loadTime)
	a.loads.WithLabelValues("failure").Inc()
	a.loadSeconds.Observe(float64(loadTime) / 1e9)
}

// RecordEviction implements xanthos.StatsCounter.
func (a *Adapter) RecordEviction(weight int) {
	a.inner.RecordEviction(weight)
	a.evictions.Inc()
	a.evictedWeight.Add(float64(weight))
}

// Snapshot implements xanthos.StatsCounter.
func (a *Adapter) Snapshot() xanthos.CacheStats {
	return a.inner.Snapshot()
}

// Ensure Adapter implements the StatsCounter interface at compile time.
var _ xanthos.StatsCounter = (*Adapter)(nil)
