// policy.go: read-only inspection and runtime tuning facade
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "github.com/agilira/xanthos/internal/util"

// Entry is a snapshot of one cache mapping taken by the policy facade.
type Entry[K comparable, V any] struct {
	Key    K
	Value  V
	Weight int
}

// Policy exposes inspection and tuning of the eviction and expiration
// machinery. Snapshot methods run a maintenance cycle first so the returned
// orderings reflect all buffered events, and hold the eviction lock while
// collecting; they are intended for telemetry and debugging, not hot paths.
type Policy[K comparable, V any] struct {
	cache *Cache[K, V]
}

// Policy returns the tuning facade for the cache.
func (c *Cache[K, V]) Policy() *Policy[K, V] {
	return &Policy[K, V]{cache: c}
}

// GetMaximum returns the configured maximum size or weight.
func (p *Policy[K, V]) GetMaximum() int64 {
	return p.cache.maximum.Load()
}

// SetMaximum changes the maximum size or weight and immediately enforces
// the new bound. A negative maximum returns a coded error.
func (p *Policy[K, V]) SetMaximum(maximum int64) error {
	if maximum < 0 {
		return NewErrInvalidMaximum(maximum)
	}
	c := p.cache
	c.evictionLock.Lock()
	defer c.evictionLock.Unlock()
	c.setMaximum(maximum)
	c.maintenance(nil)
	return nil
}

// IsWeighted reports whether entries are measured by a weigher rather than
// counted.
func (p *Policy[K, V]) IsWeighted() bool {
	return p.cache.weighted
}

// WeightedSize returns the combined weight of the resident entries.
func (p *Policy[K, V]) WeightedSize() int64 {
	return p.cache.weightedSize.Load()
}

// WeightOf returns the weight of the entry for key, if present.
func (p *Policy[K, V]) WeightOf(key K) (int, bool) {
	n := p.cache.store.get(util.Fnv64a(key), key)
	if n == nil || !n.isAlive() {
		return 0, false
	}
	return int(n.weight.Load()), true
}

// Coldest returns up to limit entries in eviction order: the entries the
// policy would discard first come first.
func (p *Policy[K, V]) Coldest(limit int) []Entry[K, V] {
	return p.snapshotAccessOrder(limit, true)
}

// Hottest returns up to limit entries in retention order: the entries the
// policy values most come first.
func (p *Policy[K, V]) Hottest(limit int) []Entry[K, V] {
	return p.snapshotAccessOrder(limit, false)
}

// snapshotAccessOrder walks probation, protected and eden. Coldest order
// follows eviction preference: probation front to back, then protected,
// then eden; hottest is the reverse.
func (p *Policy[K, V]) snapshotAccessOrder(limit int, coldest bool) []Entry[K, V] {
	c := p.cache
	c.evictionLock.Lock()
	defer c.evictionLock.Unlock()
	c.maintenance(nil)

	entries := make([]Entry[K, V], 0, limit)
	collect := func(n *node[K, V]) bool {
		if len(entries) >= limit {
			return false
		}
		if vp := n.value.Load(); vp != nil {
			entries = append(entries, Entry[K, V]{Key: n.key, Value: *vp, Weight: int(n.weight.Load())})
		}
		return true
	}
	if coldest {
		for _, d := range []*accessDeque[K, V]{&c.probation, &c.protected, &c.eden} {
			for n := d.head; n != nil; n = n.nextAccess {
				if !collect(n) {
					return entries
				}
			}
		}
	} else {
		for _, d := range []*accessDeque[K, V]{&c.eden, &c.protected, &c.probation} {
			for n := d.tail; n != nil; n = n.prevAccess {
				if !collect(n) {
					return entries
				}
			}
		}
	}
	return entries
}

// Oldest returns up to limit entries ordered by write time, oldest first.
// It returns nil when expire-after-write is not configured, as the write
// order is only maintained for that policy.
func (p *Policy[K, V]) Oldest(limit int) []Entry[K, V] {
	return p.snapshotWriteOrder(limit, true)
}

// Youngest returns up to limit entries ordered by write time, newest first.
// Nil when expire-after-write is not configured.
func (p *Policy[K, V]) Youngest(limit int) []Entry[K, V] {
	return p.snapshotWriteOrder(limit, false)
}

func (p *Policy[K, V]) snapshotWriteOrder(limit int, oldest bool) []Entry[K, V] {
	c := p.cache
	if !c.expiresAfterWrite {
		return nil
	}
	c.evictionLock.Lock()
	defer c.evictionLock.Unlock()
	c.maintenance(nil)

	entries := make([]Entry[K, V], 0, limit)
	if oldest {
		for n := c.writeOrder.head; n != nil && len(entries) < limit; n = n.nextWrite {
			if vp := n.value.Load(); vp != nil {
				entries = append(entries, Entry[K, V]{Key: n.key, Value: *vp, Weight: int(n.weight.Load())})
			}
		}
	} else {
		for n := c.writeOrder.tail; n != nil && len(entries) < limit; n = n.prevWrite {
			if vp := n.value.Load(); vp != nil {
				entries = append(entries, Entry[K, V]{Key: n.key, Value: *vp, Weight: int(n.weight.Load())})
			}
		}
	}
	return entries
}

// ExpiringSoonest returns up to limit variably-expiring entries ordered by
// how soon their deadline bucket fires, soonest first. Nil when variable
// expiration is not configured. Ordering is bucket-granular: entries within
// one timer wheel bucket appear in insertion order.
func (p *Policy[K, V]) ExpiringSoonest(limit int) []Entry[K, V] {
	c := p.cache
	if !c.expiresVariable {
		return nil
	}
	c.evictionLock.Lock()
	defer c.evictionLock.Unlock()
	c.maintenance(nil)

	entries := make([]Entry[K, V], 0, limit)
	for level := 0; level < len(c.wheel.wheel); level++ {
		buckets := wheelBuckets[level]
		start := c.wheel.nanos >> wheelShifts[level]
		for i := int64(0); i < buckets && len(entries) < limit; i++ {
			sentinel := c.wheel.wheel[level][(start+i)&(buckets-1)]
			for n := sentinel.nextTimer; n != sentinel && len(entries) < limit; n = n.nextTimer {
				if vp := n.value.Load(); vp != nil {
					entries = append(entries, Entry[K, V]{Key: n.key, Value: *vp, Weight: int(n.weight.Load())})
				}
			}
		}
		if len(entries) >= limit {
			break
		}
	}
	return entries
}

// RefreshAfterWrite returns the configured refresh bound in nanoseconds and
// whether refreshing is enabled.
func (p *Policy[K, V]) RefreshAfterWrite() (int64, bool) {
	return p.cache.refreshAfterWriteNanos, p.cache.refreshes
}

// ExpireAfterWrite returns the configured time-to-live in nanoseconds and
// whether it is enabled.
func (p *Policy[K, V]) ExpireAfterWrite() (int64, bool) {
	return p.cache.expiresAfterWriteNanos, p.cache.expiresAfterWrite
}

// ExpireAfterAccess returns the configured time-to-idle in nanoseconds and
// whether it is enabled.
func (p *Policy[K, V]) ExpireAfterAccess() (int64, bool) {
	return p.cache.expiresAfterAccessNanos, p.cache.expiresAfterAccess
}
