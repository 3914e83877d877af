// collector.go: OpenTelemetry adapter for the cache stats counter
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package otel provides OpenTelemetry integration for xanthos cache
// statistics, enabling observability with automatic percentile calculation
// and multi-backend support (Prometheus, Jaeger, DataDog, Grafana).
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"

	"github.com/agilira/xanthos"
)

// ErrNilMeterProvider is returned when NewStatsCounter receives a nil provider.
var ErrNilMeterProvider = errors.New("meter provider cannot be nil")

// StatsCounter implements xanthos.StatsCounter using OpenTelemetry
// instruments. Thread-safe: the underlying OTEL instruments are lock-free.
// Snapshot is served from an embedded atomic counter so the cache facade
// keeps working without reading back the meter.
type StatsCounter struct {
	inner xanthos.StatsCounter

	hits        metric.Int64Counter
	misses      metric.Int64Counter
	loads       metric.Int64Counter
	loadFails   metric.Int64Counter
	loadLatency metric.Int64Histogram
	evictions   metric.Int64Counter
}

// Options for configuring the collector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/xanthos"
	MeterName string
}

// Option is a functional option for configuring the collector.
type Option func(*Options)

// WithMeterName sets a custom meter name, useful for distinguishing metrics
// from multiple cache instances.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewStatsCounter creates an OpenTelemetry-backed stats counter.
//
// The following instruments are created:
//   - xanthos_hits_total, xanthos_misses_total: lookup counters
//   - xanthos_loads_total, xanthos_load_failures_total: load counters
//   - xanthos_load_latency_ns: load latency histogram
//   - xanthos_evictions_total: eviction counter
//
// Example:
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	counter, err := otel.NewStatsCounter(provider)
func NewStatsCounter(provider metric.MeterProvider, opts ...Option) (*StatsCounter, error) {
	if provider == nil {
		return nil, ErrNilMeterProvider
	}

	options := Options{MeterName: "github.com/agilira/xanthos"}
	for _, opt := range opts {
		opt(&options)
	}
	meter := provider.Meter(options.MeterName)

	s := &StatsCounter{inner: xanthos.NewStatsCounter()}

	var err error
	if s.hits, err = meter.Int64Counter(
		"xanthos_hits_total",
		metric.WithDescription("Total number of cache hits"),
	); err != nil {
		return nil, err
	}
	if s.misses, err = meter.Int64Counter(
		"xanthos_misses_total",
		metric.WithDescription("Total number of cache misses"),
	); err != nil {
		return nil, err
	}
	if s.loads, err = meter.Int64Counter(
		"xanthos_loads_total",
		metric.WithDescription("Total number of successful loads"),
	); err != nil {
		return nil, err
	}
	if s.loadFails, err = meter.Int64Counter(
		"xanthos_load_failures_total",
		metric.WithDescription("Total number of failed loads"),
	); err != nil {
		return nil, err
	}
	if s.loadLatency, err = meter.Int64Histogram(
		"xanthos_load_latency_ns",
		metric.WithDescription("Latency of loads in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}
	if s.evictions, err = meter.Int64Counter(
		"xanthos_evictions_total",
		metric.WithDescription("Total number of evictions"),
	); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordHits implements xanthos.StatsCounter.
func (s *StatsCounter) RecordHits(count int) {
	s.inner.RecordHits(count)
	s.hits.Add(context.Background(), int64(count))
}

// RecordMisses implements xanthos.StatsCounter.
func (s *StatsCounter) RecordMisses(count int) {
	s.inner.RecordMisses(count)
	s.misses.Add(context.Background(), int64(count))
}

// RecordLoadSuccess implements xanthos.StatsCounter.
func (s *StatsCounter) RecordLoadSuccess(loadTime int64) {
	s.inner.RecordLoadSuccess(loadTime)
	s.loads.Add(context.Background(), 1)
	s.loadLatency.Record(context.Background(), loadTime)
}

// RecordLoadFailure implements xanthos.StatsCounter.
func (s *StatsCounter) RecordLoadFailure(loadTime int64) {
	s.inner.RecordLoadFailure(loadTime)
	s.loadFails.Add(context.Background(), 1)
	s.loadLatency.Record(context.Background(), loadTime)
}

// RecordEviction implements xanthos.StatsCounter.
func (s *StatsCounter) RecordEviction(weight int) {
	s.inner.RecordEviction(weight)
	s.evictions.Add(context.Background(), 1)
}

// Snapshot implements xanthos.StatsCounter.
func (s *StatsCounter) Snapshot() xanthos.CacheStats {
	return s.inner.Snapshot()
}

// Ensure StatsCounter implements the interface at compile time.
var _ xanthos.StatsCounter = (*StatsCounter)(nil)
