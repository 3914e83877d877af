// refresh_test.go: tests for refresh-after-write
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingLoader reloads to its configured value (or fails when fail is
// set), counting invocations.
type countingLoader struct {
	mu      sync.Mutex
	reloads int
	fail    bool
	value   string
}

func (l *countingLoader) Load(_ context.Context, key string) (string, error) {
	return l.value, nil
}

func (l *countingLoader) Reload(_ context.Context, _ string, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reloads++
	if l.fail {
		return "", errors.New("reload failed")
	}
	return l.value, nil
}

func TestRefreshAfterWriteOnStaleRead(t *testing.T) {
	clock := &fakeTime{}
	loader := &countingLoader{value: "fresh"}
	c := newTestCache(t, Config[string, string]{
		MaximumSize:       100,
		RefreshAfterWrite: 10 * time.Second,
		Loader:            loader,
		TimeProvider:      clock,
	})

	c.Put("k", "stale")

	// A read inside the refresh window does not trigger a reload.
	clock.advance(5 * time.Second)
	c.GetIfPresent("k")
	if loader.reloads != 0 {
		t.Fatalf("reloads = %d before the window elapsed, want 0", loader.reloads)
	}

	// A stale read triggers exactly one reload (executor is synchronous).
	clock.advance(6 * time.Second)
	c.GetIfPresent("k")
	if loader.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", loader.reloads)
	}
	if v, _ := c.GetIfPresent("k"); v != "fresh" {
		t.Errorf("value = %q, want reloaded %q", v, "fresh")
	}
}

func TestRefreshIdentityPreservesValueSilently(t *testing.T) {
	clock := &fakeTime{}
	rec := &removalRecorder[string, string]{}
	identity := LoaderFunc[string, string](func(_ context.Context, _ string) (string, error) {
		return "same", nil
	})
	c := newTestCache(t, Config[string, string]{
		MaximumSize:       100,
		RefreshAfterWrite: time.Second,
		Loader:            identity,
		TimeProvider:      clock,
		RemovalListener:   rec.listener(),
	})

	c.Put("k", "same")
	clock.advance(2 * time.Second)
	c.Refresh("k")

	if v, ok := c.GetIfPresent("k"); !ok || v != "same" {
		t.Fatalf("value = %v,%v, want same,true", v, ok)
	}
	// An identity refresh replaces nothing and must not notify.
	for _, e := range rec.snapshot() {
		if e.cause == CauseReplaced {
			t.Errorf("identity refresh produced a replacement notification: %+v", e)
		}
	}
}

func TestRefreshFailureRestoresState(t *testing.T) {
	clock := &fakeTime{}
	loader := &countingLoader{value: "new", fail: true}
	c := newTestCache(t, Config[string, string]{
		MaximumSize:       100,
		RefreshAfterWrite: time.Second,
		Loader:            loader,
		TimeProvider:      clock,
		RecordStats:       true,
	})

	c.Put("k", "original")
	clock.advance(2 * time.Second)
	c.Refresh("k")

	// The failed refresh restored the original write time, so this read
	// still observes a stale entry and triggers a second reload, which also
	// fails.
	if v, ok := c.GetIfPresent("k"); !ok || v != "original" {
		t.Errorf("value after failed refresh = %v,%v, want original,true", v, ok)
	}
	if got := c.Stats().LoadFailures; got != 2 {
		t.Errorf("load failures = %d, want 2", got)
	}

	// The claim was released: a later refresh runs the loader again.
	loader.fail = false
	clock.advance(2 * time.Second)
	c.Refresh("k")
	if loader.reloads != 3 {
		t.Errorf("reloads = %d, want 3", loader.reloads)
	}
	if v, _ := c.GetIfPresent("k"); v != "new" {
		t.Errorf("value = %q, want %q", v, "new")
	}
}

func TestRefreshReplacesOnlyIfUnchanged(t *testing.T) {
	clock := &fakeTime{}
	release := make(chan struct{})
	var tasks sync.WaitGroup
	blocking := LoaderFunc[string, string](func(_ context.Context, _ string) (string, error) {
		<-release
		return "from-reload", nil
	})
	c := newTestCache(t, Config[string, string]{
		MaximumSize:       100,
		RefreshAfterWrite: time.Second,
		Loader:            blocking,
		TimeProvider:      clock,
		Executor: func(task func()) {
			tasks.Add(1)
			go func() {
				defer tasks.Done()
				task()
			}()
		},
	})

	c.Put("k", "v1")
	clock.advance(2 * time.Second)
	c.Refresh("k")

	// A competing write lands while the reload is in flight.
	c.Put("k", "v2")
	close(release)
	tasks.Wait()

	if v, _ := c.GetIfPresent("k"); v != "v2" {
		t.Errorf("value = %q, the stale reload must be discarded", v)
	}
}

func TestRefreshAbsentKeyIsNoOp(t *testing.T) {
	loader := &countingLoader{value: "x"}
	c := newTestCache(t, Config[string, string]{
		MaximumSize:       100,
		RefreshAfterWrite: time.Second,
		Loader:            loader,
	})
	c.Refresh("ghost")
	if loader.reloads != 0 {
		t.Errorf("reloads = %d for absent key, want 0", loader.reloads)
	}
}
