// config.go: configuration for Xanthos
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Config holds construction parameters for the cache. The zero value builds
// an unbounded-by-weight cache limited to DefaultMaximumSize entries.
//
// Contradictory combinations are rejected by Validate rather than coerced:
// MaximumSize with a Weigher, MaximumWeight without one, negative durations,
// and RefreshAfterWrite without a Loader.
type Config[K comparable, V any] struct {
	// MaximumSize bounds the cache by entry count; every entry weighs 1.
	// Mutually exclusive with MaximumWeight.
	MaximumSize int64

	// MaximumWeight bounds the cache by total weight as measured by Weigher.
	MaximumWeight int64

	// Weigher measures an entry's weight at insertion and update time.
	// Required with MaximumWeight, forbidden with MaximumSize.
	Weigher Weigher[K, V]

	// ExpireAfterWrite expires entries a fixed duration after creation or
	// value replacement. Zero disables.
	ExpireAfterWrite time.Duration

	// ExpireAfterAccess expires entries a fixed duration after the most
	// recent read or write. Zero disables.
	ExpireAfterAccess time.Duration

	// ExpireAfter computes a variable per-entry expiration through the
	// create/update/read hooks. Nil disables.
	ExpireAfter Expiry[K, V]

	// RefreshAfterWrite triggers an asynchronous reload when a read observes
	// an entry older than the duration. Requires Loader. Zero disables.
	RefreshAfterWrite time.Duration

	// Loader backs Get, GetAll, Refresh and refresh-after-write. GetOrLoad
	// uses the loader function passed to it instead.
	Loader Loader[K, V]

	// RemovalListener is notified asynchronously of every removal.
	RemovalListener RemovalListener[K, V]

	// Writer observes mutations synchronously inside the mutating operation.
	Writer CacheWriter[K, V]

	// RecordStats enables hit/miss/load/eviction accounting. When false the
	// cache uses a disabled counter with zero overhead.
	RecordStats bool

	// StatsCounter overrides the counter implementation used when
	// RecordStats is true (Prometheus or OTel adapters, for example).
	StatsCounter StatsCounter

	// InitialCapacity is a sizing hint for the node store.
	InitialCapacity int

	// TimeProvider overrides the nanosecond time source.
	// Default: go-timecache backed system time.
	TimeProvider TimeProvider

	// Executor runs asynchronous work (maintenance, notifications,
	// refreshes). Default: one goroutine per task.
	Executor Executor

	// Logger is used for maintenance and callback failure reporting.
	// If nil, NoOpLogger is used.
	Logger Logger
}

// Validate checks the configuration and applies defaults in place.
// It returns a coded error for contradictory settings.
func (c *Config[K, V]) Validate() error {
	if c.MaximumSize < 0 {
		return NewErrInvalidMaximum(c.MaximumSize)
	}
	if c.MaximumWeight < 0 {
		return NewErrInvalidMaximum(c.MaximumWeight)
	}
	if c.MaximumSize > 0 && c.MaximumWeight > 0 {
		return NewErrInvalidMaximum(c.MaximumWeight)
	}
	if c.MaximumSize > 0 && c.Weigher != nil {
		return NewErrWeigherForbidden(c.MaximumSize)
	}
	if c.MaximumWeight > 0 && c.Weigher == nil {
		return NewErrWeigherRequired(c.MaximumWeight)
	}
	if c.ExpireAfterWrite < 0 {
		return NewErrInvalidExpiration("expire_after_write", c.ExpireAfterWrite)
	}
	if c.ExpireAfterAccess < 0 {
		return NewErrInvalidExpiration("expire_after_access", c.ExpireAfterAccess)
	}
	if c.RefreshAfterWrite < 0 {
		return NewErrInvalidExpiration("refresh_after_write", c.RefreshAfterWrite)
	}
	if c.RefreshAfterWrite > 0 && c.Loader == nil {
		return NewErrLoaderRequired()
	}

	if c.MaximumSize == 0 && c.MaximumWeight == 0 {
		c.MaximumSize = DefaultMaximumSize
	}
	if c.InitialCapacity < 0 {
		c.InitialCapacity = 0
	}
	if c.TimeProvider == nil {
		c.TimeProvider = systemTimeProvider{}
	}
	if c.Executor == nil {
		c.Executor = func(task func()) { go task() }
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if !c.RecordStats {
		c.StatsCounter = disabledStatsCounter{}
	} else if c.StatsCounter == nil {
		c.StatsCounter = newConcurrentStatsCounter()
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig[K comparable, V any]() Config[K, V] {
	return Config[K, V]{
		MaximumSize:  DefaultMaximumSize,
		TimeProvider: systemTimeProvider{},
		Logger:       NoOpLogger{},
	}
}

// systemTimeProvider is the default time provider using go-timecache,
// which amortizes time.Now() to a cached nanosecond clock.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
