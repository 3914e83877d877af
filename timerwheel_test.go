// timerwheel_test.go: tests for the hierarchical timer wheel
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "testing"

func TestWheelSpanConstants(t *testing.T) {
	wantSpans := [5]int64{
		1 << 30, // ~1.07s
		1 << 36, // ~1.14m
		1 << 42, // ~1.22h
		1 << 47, // ~1.63d
		4 << 47, // ~6.5d
	}
	for i, want := range wantSpans {
		if wheelSpans[i] != want {
			t.Errorf("wheelSpans[%d] = %d, want %d", i, wheelSpans[i], want)
		}
	}
	wantShifts := [5]uint{30, 36, 42, 47, 49}
	for i, want := range wantShifts {
		if wheelShifts[i] != want {
			t.Errorf("wheelShifts[%d] = %d, want %d", i, wheelShifts[i], want)
		}
	}
}

func scheduleAt[K comparable, V any](w *timerWheel[K, V], key K, deadline int64) *node[K, V] {
	n := &node[K, V]{key: key}
	n.variableTime.Store(deadline)
	w.schedule(n)
	return n
}

func TestWheelFiresExpiredEntry(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 0

	n := scheduleAt(w, "k", 5_000_000_000) // 5s out

	var fired []*node[string, int]
	evict := func(n *node[string, int]) bool {
		fired = append(fired, n)
		return true
	}

	w.advance(2_000_000_000, evict)
	if len(fired) != 0 {
		t.Fatal("entry fired before its deadline")
	}

	// One full bucket span past the deadline guarantees removal.
	w.advance(5_000_000_000+wheelSpans[0], evict)
	if len(fired) != 1 || fired[0] != n {
		t.Fatalf("entry not fired after deadline + span, fired=%d", len(fired))
	}
	if n.nextTimer != nil {
		t.Error("fired node must be fully unlinked")
	}
}

func TestWheelCascadesAcrossLevels(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 0

	// Two minutes out lands on the minute level, then cascades down.
	deadline := int64(120_000_000_000)
	scheduleAt(w, "k", deadline)

	var fired int
	evict := func(*node[string, int]) bool {
		fired++
		return true
	}

	w.advance(90_000_000_000, evict)
	if fired != 0 {
		t.Fatal("entry fired while still in the future")
	}
	w.advance(deadline+wheelSpans[0], evict)
	if fired != 1 {
		t.Errorf("entry fired %d times after cascade, want 1", fired)
	}
}

func TestWheelReschedulesDeclinedEviction(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 0

	n := scheduleAt(w, "k", 1_000_000_000)

	// The evictor declines: the entry was concurrently extended.
	calls := 0
	w.advance(3_000_000_000, func(m *node[string, int]) bool {
		calls++
		m.variableTime.Store(10_000_000_000)
		return false
	})
	if calls != 1 {
		t.Fatalf("evictor called %d times, want 1", calls)
	}
	if n.nextTimer == nil {
		t.Fatal("declined node must be rescheduled")
	}

	// With the extended deadline it fires on a later advance.
	fired := 0
	w.advance(10_000_000_000+wheelSpans[0], func(*node[string, int]) bool {
		fired++
		return true
	})
	if fired != 1 {
		t.Errorf("extended node fired %d times, want 1", fired)
	}
}

func TestWheelDeschedule(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 0
	n := scheduleAt(w, "k", 2_000_000_000)

	w.deschedule(n)
	w.deschedule(n) // idempotent

	fired := 0
	w.advance(4_000_000_000, func(*node[string, int]) bool {
		fired++
		return true
	})
	if fired != 0 {
		t.Error("descheduled node must not fire")
	}
}

func TestWheelAdvanceRollsBackOnPanic(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 0
	scheduleAt(w, "k", 1_000_000_000)

	func() {
		defer func() { _ = recover() }()
		w.advance(3_000_000_000, func(*node[string, int]) bool {
			panic("listener blew up")
		})
	}()
	if w.nanos != 0 {
		t.Errorf("nanos = %d after panic, want rollback to 0", w.nanos)
	}
}

func TestWheelIgnoresBackwardAdvance(t *testing.T) {
	w := newTimerWheel[string, int]()
	w.nanos = 5_000_000_000
	w.advance(1_000_000_000, func(*node[string, int]) bool { return true })
	if w.nanos != 5_000_000_000 {
		t.Error("advance must be monotonic")
	}
}
