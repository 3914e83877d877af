// loading.go: compute-if-absent with single-flight deduplication
//
// This file implements Get, GetOrLoad and GetAll, providing the cache-aside
// pattern with automatic deduplication of concurrent loads for the same key.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package xanthos

import "context"

// flight is one in-progress load. done is closed when the loader completes,
// broadcasting to every waiter without a goroutine per waiter; the result
// fields are published before the close and read only after it.
type flight[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Get returns the value for key, loading it through the configured Loader
// on a miss. Concurrent loads for the same key are coalesced: the mapping
// function runs at most once per key per concurrent attempt.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if c.loader == nil {
		var zero V
		return zero, NewErrNilLoader("Get")
	}
	return c.GetOrLoadWithContext(ctx, key, func(ctx context.Context) (V, error) {
		return c.loader.Load(ctx, key)
	})
}

// GetOrLoad returns the value from cache, or loads it using the provided
// loader function. If multiple goroutines call GetOrLoad for the same
// missing key concurrently, only one loader executes (single flight).
// A loader error is returned without being cached.
func (c *Cache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, error) {
	if loader == nil {
		var zero V
		return zero, NewErrNilLoader("GetOrLoad")
	}
	return c.GetOrLoadWithContext(context.Background(), key, func(context.Context) (V, error) {
		return loader()
	})
}

// GetOrLoadWithContext is GetOrLoad with context cancellation. A waiter
// whose context ends stops waiting; the load itself continues and still
// populates the cache for later callers.
func (c *Cache[K, V]) GetOrLoadWithContext(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if value, found := c.GetIfPresent(key); found {
		return value, nil
	}
	if loader == nil {
		return zero, NewErrNilLoader("GetOrLoadWithContext")
	}
	if err := ctx.Err(); err != nil {
		return zero, NewErrLoaderCancelled(err)
	}

	newFlight := &flight[V]{done: make(chan struct{})}
	actual, loaded := c.inflight.LoadOrStore(key, newFlight)
	current := actual.(*flight[V])

	if loaded {
		select {
		case <-current.done:
			return current.value, current.err
		case <-ctx.Done():
			return zero, NewErrLoaderCancelled(ctx.Err())
		}
	}

	defer func() {
		close(current.done)
		c.inflight.Delete(key)
	}()

	// The winner re-checks under the flight so a racing Put is not clobbered
	// by a stale load. The miss was already recorded above.
	if value, found := c.getIfPresent(key, false); found {
		current.value = value
		return value, nil
	}

	start := c.timeProvider.Now()
	value, err := func() (v V, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = NewErrPanicRecovered("GetOrLoad", r)
			}
		}()
		return loader(ctx)
	}()
	loadTime := c.timeProvider.Now() - start

	if err != nil {
		c.stats.RecordLoadFailure(loadTime)
		current.err = NewErrLoaderFailed(err)
		return zero, current.err
	}
	c.stats.RecordLoadSuccess(loadTime)
	c.Put(key, value)
	current.value = value
	return value, nil
}

// GetAll returns the values for keys, loading absent ones. When the
// configured loader implements BulkLoader the absent keys are fetched in a
// single round trip; otherwise they load sequentially. Keys whose load
// fails are omitted and the first error is returned alongside the partial
// result.
func (c *Cache[K, V]) GetAll(ctx context.Context, keys []K) (map[K]V, error) {
	result := make(map[K]V, len(keys))
	var misses []K
	for _, key := range keys {
		if _, ok := result[key]; ok {
			continue
		}
		if value, found := c.GetIfPresent(key); found {
			result[key] = value
		} else {
			misses = append(misses, key)
		}
	}
	if len(misses) == 0 {
		return result, nil
	}
	if c.loader == nil {
		return result, NewErrNilLoader("GetAll")
	}

	if bulk, ok := c.loader.(BulkLoader[K, V]); ok {
		start := c.timeProvider.Now()
		loaded, err := bulk.LoadAll(ctx, misses)
		loadTime := c.timeProvider.Now() - start
		if err != nil {
			c.stats.RecordLoadFailure(loadTime)
			return result, NewErrLoaderFailed(err)
		}
		c.stats.RecordLoadSuccess(loadTime)
		for key, value := range loaded {
			c.Put(key, value)
			result[key] = value
		}
		return result, nil
	}

	var firstErr error
	for _, key := range misses {
		value, err := c.Get(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result[key] = value
	}
	return result, firstErr
}

// GetAllPresent returns the values for the keys currently cached, without
// loading.
func (c *Cache[K, V]) GetAllPresent(keys []K) map[K]V {
	result := make(map[K]V, len(keys))
	for _, key := range keys {
		if _, ok := result[key]; ok {
			continue
		}
		if value, found := c.GetIfPresent(key); found {
			result[key] = value
		}
	}
	return result
}
