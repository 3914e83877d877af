// refresh.go: asynchronous refresh-after-write
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"context"

	"github.com/agilira/xanthos/internal/util"
)

// refreshIfNeeded triggers an asynchronous reload when a read observes an
// entry older than the refresh bound. Called on the read path.
func (c *Cache[K, V]) refreshIfNeeded(n *node[K, V], now int64) {
	if !c.refreshes {
		return
	}
	if now-n.writeTime.Load() <= c.refreshAfterWriteNanos {
		return
	}
	c.refreshNode(n, now)
}

// Refresh asynchronously recomputes the value for key using the configured
// loader's Reload hook. It is non-blocking; an absent key or missing loader
// is a no-op. The value is replaced only if the entry was not concurrently
// written, and a failed reload restores the original state.
func (c *Cache[K, V]) Refresh(key K) {
	if c.loader == nil {
		return
	}
	if n := c.store.get(util.Fnv64a(key), key); n != nil {
		c.refreshNode(n, c.timeProvider.Now())
	}
}

// refreshNode claims the refresh slot by swinging writeTime far into the
// future, so concurrent readers do not pile on additional reloads, then
// runs the reload on the executor. Completion installs the new value only
// while the captured old value and the claim are both still in place.
func (c *Cache[K, V]) refreshNode(n *node[K, V], now int64) {
	oldWriteTime := n.writeTime.Load()
	if oldWriteTime > now {
		// Another refresh already holds the claim.
		return
	}
	refreshWriteTime := saturatingAdd(now, maximumExpiryNanos)
	if !n.writeTime.CompareAndSwap(oldWriteTime, refreshWriteTime) {
		return
	}
	oldvp := n.value.Load()
	if oldvp == nil {
		n.writeTime.CompareAndSwap(refreshWriteTime, oldWriteTime)
		return
	}

	c.executor(func() {
		defer func() {
			if r := recover(); r != nil {
				n.writeTime.CompareAndSwap(refreshWriteTime, oldWriteTime)
				c.logger.Error("refresh panicked", "panic", r)
			}
		}()

		start := c.timeProvider.Now()
		newValue, err := c.loader.Reload(context.Background(), n.key, *oldvp)
		loadTime := c.timeProvider.Now() - start
		if err != nil {
			c.stats.RecordLoadFailure(loadTime)
			n.writeTime.CompareAndSwap(refreshWriteTime, oldWriteTime)
			c.logger.Warn("refresh failed", "error", err)
			return
		}
		c.stats.RecordLoadSuccess(loadTime)

		n.mu.Lock()
		if !n.isAlive() || n.value.Load() != oldvp || n.writeTime.Load() != refreshWriteTime {
			// The entry moved on while we reloaded; discard the result.
			n.mu.Unlock()
			return
		}
		installNanos := c.timeProvider.Now()
		newWeight := c.weigher(n.key, newValue)
		oldWeight := n.weight.Load()
		vp := &newValue
		n.value.Store(vp)
		n.weight.Store(int32(newWeight))
		if c.expiresVariable {
			current := n.variableTime.Load()
			duration := clampDuration(c.expiry.ExpireAfterUpdate(n.key, newValue, installNanos, current-installNanos))
			n.variableTime.Store(saturatingAdd(installNanos, duration))
		}
		n.writeTime.Store(installNanos)
		changed := !equalValues(*oldvp, newValue)
		func() {
			defer n.mu.Unlock()
			if changed {
				c.writerWrite(n.key, newValue)
			}
		}()
		if changed {
			c.notifyRemoval(n.key, *oldvp, CauseReplaced)
		}
		c.afterWrite(task[K, V]{kind: taskUpdate, node: n, weightDelta: int64(newWeight) - int64(oldWeight)})
	})
}
