// Package xanthos provides a high-performance, concurrent, bounded
// in-memory cache built on the W-TinyLFU (Window TinyLFU) admission policy.
//
// # Overview
//
// Xanthos keeps reads and writes off the policy lock entirely: accesses are
// recorded into striped lossy ring buffers and mutations into a lossless
// growable MPSC queue, and a single maintenance routine drains both and
// applies the batched effects to the eviction and expiration machinery.
// The policy combines a small recency window (eden) with a frequency
// filtered main space (probation and protected segments) guided by a 4-bit
// Count-Min sketch with periodic aging, giving a near-optimal hit ratio
// under bursty workloads.
//
// # Features
//
//   - W-TinyLFU admission: frequency duel between the probation victim and
//     the eden-demoted candidate
//   - Bounded by entry count or by weigher-measured total weight
//   - Expiration: after-write (TTL), after-access (TTI), and per-entry
//     variable deadlines on a five-level hierarchical timer wheel
//   - Refresh-after-write: stale reads trigger a non-blocking reload
//   - Single-flight loading: GetOrLoad coalesces concurrent misses
//   - Synchronous CacheWriter and asynchronous RemovalListener hooks
//   - Structured errors with error codes, pluggable structured logging
//   - Statistics with Prometheus (metrics/prom) and OpenTelemetry (otel)
//     adapters
//   - Hot-reloadable maximum via Argus file watching
//
// # Quick Start
//
//	import "github.com/agilira/xanthos"
//
//	func main() {
//	    cache, err := xanthos.New(xanthos.Config[string, string]{
//	        MaximumSize:      10_000,
//	        ExpireAfterWrite: time.Hour,
//	        RecordStats:      true,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    cache.Put("greeting", "hello")
//	    if v, ok := cache.GetIfPresent("greeting"); ok {
//	        fmt.Println(v)
//	    }
//
//	    fmt.Printf("hit ratio: %.1f%%\n", cache.Stats().HitRatio())
//	}
//
// # Consistency model
//
// Operations on a single key are linearizable. Policy effects (ordering,
// eviction choice) are eventually consistent: an access may not influence
// the eviction order until the next buffer drain. CleanUp runs a drain
// inline when deterministic quiescence is needed.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package xanthos
