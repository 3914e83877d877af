// loading_test.go: tests for single-flight loading and bulk gets
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestGetOrLoadCachesValue(t *testing.T) {
	c := newTestCache(t, Config[string, string]{MaximumSize: 100, RecordStats: true})

	calls := 0
	loader := func() (string, error) {
		calls++
		return "loaded", nil
	}

	v, err := c.GetOrLoad("k", loader)
	if err != nil || v != "loaded" {
		t.Fatalf("GetOrLoad = %v,%v", v, err)
	}
	v, err = c.GetOrLoad("k", loader)
	if err != nil || v != "loaded" {
		t.Fatalf("second GetOrLoad = %v,%v", v, err)
	}
	if calls != 1 {
		t.Errorf("loader ran %d times, want 1", calls)
	}
	stats := c.Stats()
	if stats.LoadSuccesses != 1 {
		t.Errorf("load successes = %d, want 1", stats.LoadSuccesses)
	}
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := newTestCache(t, Config[string, string]{MaximumSize: 100, RecordStats: true})

	boom := errors.New("backend down")
	_, err := c.GetOrLoad("k", func() (string, error) { return "", boom })
	if err == nil || !IsLoaderError(err) {
		t.Fatalf("err = %v, want loader error", err)
	}
	if c.Has("k") {
		t.Error("failed load must not populate the cache")
	}
	if got := c.Stats().LoadFailures; got != 1 {
		t.Errorf("load failures = %d, want 1", got)
	}

	// The next attempt runs the loader again (errors are not cached).
	v, err := c.GetOrLoad("k", func() (string, error) { return "recovered", nil })
	if err != nil || v != "recovered" {
		t.Errorf("recovery load = %v,%v", v, err)
	}
}

func TestGetOrLoadSingleFlight(t *testing.T) {
	c := newTestCache(t, Config[string, int]{MaximumSize: 100, Executor: func(task func()) { go task() }})

	var calls atomic.Int32
	gate := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad("k", func() (int, error) {
				calls.Add(1)
				<-gate
				return 42, nil
			})
			if err != nil {
				return err
			}
			if v != 42 {
				return errors.New("wrong value")
			}
			return nil
		})
	}
	close(gate)
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("loader ran %d times under concurrency, want 1", got)
	}
}

func TestGetOrLoadPanicRecovered(t *testing.T) {
	c := newTestCache(t, Config[string, int]{MaximumSize: 100})

	_, err := c.GetOrLoad("k", func() (int, error) { panic("loader exploded") })
	if err == nil {
		t.Fatal("panicking loader must surface an error")
	}
	if GetErrorCode(err) != ErrCodeLoaderFailed && GetErrorCode(err) != ErrCodePanicRecovered {
		t.Errorf("unexpected code %s", GetErrorCode(err))
	}
}

func TestGetOrLoadNilLoader(t *testing.T) {
	c := newTestCache(t, Config[string, int]{MaximumSize: 100})
	if _, err := c.GetOrLoad("k", nil); GetErrorCode(err) != ErrCodeNilLoader {
		t.Errorf("err = %v, want nil-loader code", err)
	}
}

func TestGetUsesConfiguredLoader(t *testing.T) {
	loaded := 0
	c := newTestCache(t, Config[string, string]{
		MaximumSize: 100,
		Loader: LoaderFunc[string, string](func(_ context.Context, key string) (string, error) {
			loaded++
			return "value-for-" + key, nil
		}),
	})

	v, err := c.Get(context.Background(), "a")
	if err != nil || v != "value-for-a" {
		t.Fatalf("Get = %v,%v", v, err)
	}
	if _, err := c.Get(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if loaded != 1 {
		t.Errorf("loader ran %d times, want 1", loaded)
	}
}

// mapLoader serves from a fixed map and implements BulkLoader.
type mapLoader struct {
	mu        sync.Mutex
	data      map[string]int
	bulkCalls int
}

func (m *mapLoader) Load(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return 0, errors.New("unknown key")
	}
	return v, nil
}

func (m *mapLoader) Reload(ctx context.Context, key string, _ int) (int, error) {
	return m.Load(ctx, key)
}

func (m *mapLoader) LoadAll(_ context.Context, keys []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	result := make(map[string]int, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

func TestGetAllUsesBulkLoader(t *testing.T) {
	loader := &mapLoader{data: map[string]int{"a": 1, "b": 2, "c": 3}}
	c := newTestCache(t, Config[string, int]{MaximumSize: 100, Loader: loader})

	c.Put("a", 1)
	result, err := c.GetAll(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 3 || result["b"] != 2 {
		t.Errorf("GetAll = %v", result)
	}
	if loader.bulkCalls != 1 {
		t.Errorf("bulk loader ran %d times, want 1", loader.bulkCalls)
	}
	if !c.Has("c") {
		t.Error("bulk-loaded entry not cached")
	}
}

func TestGetAllSequentialWithoutBulkLoader(t *testing.T) {
	loads := 0
	c := newTestCache(t, Config[string, int]{
		MaximumSize: 100,
		Loader: LoaderFunc[string, int](func(_ context.Context, key string) (int, error) {
			loads++
			return len(key), nil
		}),
	})

	result, err := c.GetAll(context.Background(), []string{"x", "yy", "zzz"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 3 || result["zzz"] != 3 {
		t.Errorf("GetAll = %v", result)
	}
	if loads != 3 {
		t.Errorf("loader ran %d times, want 3", loads)
	}
}

func TestGetOrLoadContextCancelled(t *testing.T) {
	c := newTestCache(t, Config[string, int]{MaximumSize: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrLoadWithContext(ctx, "k", func(context.Context) (int, error) { return 1, nil })
	if GetErrorCode(err) != ErrCodeLoaderCancelled {
		t.Errorf("err = %v, want cancelled code", err)
	}
}
