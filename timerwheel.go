// timerwheel.go: hierarchical timer wheel for variable expiration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "math/bits"

// The wheel has five levels of coarsening buckets. A scheduled node lives in
// the one bucket whose span covers its remaining delay; advancing the wheel
// cascades nodes into finer levels until their deadline bucket fires.
// Span constants are the next power of two of a second, minute, hour and
// day in nanoseconds, with a single overflow bucket above.
var (
	wheelBuckets = [5]int64{64, 64, 32, 4, 1}
	wheelSpans   = [5]int64{
		ceilingPowerOfTwoInt64(1_000_000_000),                        // 1.07s
		ceilingPowerOfTwoInt64(60_000_000_000),                       // 1.14m
		ceilingPowerOfTwoInt64(3_600_000_000_000),                    // 1.22h
		ceilingPowerOfTwoInt64(86_400_000_000_000),                   // 1.63d
		wheelBuckets[3] * ceilingPowerOfTwoInt64(86_400_000_000_000), // 6.5d
	}
	wheelShifts = [5]uint{
		uint(bits.TrailingZeros64(uint64(wheelSpans[0]))),
		uint(bits.TrailingZeros64(uint64(wheelSpans[1]))),
		uint(bits.TrailingZeros64(uint64(wheelSpans[2]))),
		uint(bits.TrailingZeros64(uint64(wheelSpans[3]))),
		uint(bits.TrailingZeros64(uint64(wheelSpans[4]))),
	}
)

func ceilingPowerOfTwoInt64(x int64) int64 {
	return 1 << (64 - bits.LeadingZeros64(uint64(x-1)))
}

// timerWheel owns the variable-expiration schedule. All operations run under
// the eviction lock. Buckets are sentinel-headed circular lists threaded
// through the node timer links.
type timerWheel[K comparable, V any] struct {
	wheel [5][]*node[K, V]
	nanos int64
}

func newTimerWheel[K comparable, V any]() *timerWheel[K, V] {
	w := &timerWheel[K, V]{}
	for i := range w.wheel {
		w.wheel[i] = make([]*node[K, V], wheelBuckets[i])
		for j := range w.wheel[i] {
			sentinel := &node[K, V]{}
			sentinel.prevTimer = sentinel
			sentinel.nextTimer = sentinel
			w.wheel[i][j] = sentinel
		}
	}
	return w
}

// findBucket returns the sentinel of the bucket covering the deadline.
func (w *timerWheel[K, V]) findBucket(deadline int64) *node[K, V] {
	duration := deadline - w.nanos
	for i := 0; i < len(w.wheel)-1; i++ {
		if duration < wheelSpans[i+1] {
			ticks := deadline >> wheelShifts[i]
			index := ticks & (wheelBuckets[i] - 1)
			return w.wheel[i][index]
		}
	}
	return w.wheel[len(w.wheel)-1][0]
}

// schedule adds or repositions the node for its current variableTime.
func (w *timerWheel[K, V]) schedule(n *node[K, V]) {
	w.deschedule(n)
	sentinel := w.findBucket(n.variableTime.Load())
	// Link at the tail of the circular list.
	n.prevTimer = sentinel.prevTimer
	n.nextTimer = sentinel
	sentinel.prevTimer.nextTimer = n
	sentinel.prevTimer = n
}

// deschedule removes the node from its bucket, if scheduled.
func (w *timerWheel[K, V]) deschedule(n *node[K, V]) {
	if n.nextTimer == nil {
		return
	}
	n.prevTimer.nextTimer = n.nextTimer
	n.nextTimer.prevTimer = n.prevTimer
	n.prevTimer, n.nextTimer = nil, nil
}

// advance moves the wheel to currentTimeNanos, firing every bucket between
// the previous and the current tick on each level. Fired nodes are evicted
// through evict; if evict declines (the entry was concurrently extended),
// the node is rescheduled. On panic out of evict the previous time is
// restored so the missed buckets are retried by the next advance.
func (w *timerWheel[K, V]) advance(currentTimeNanos int64, evict func(*node[K, V]) bool) {
	previousTimeNanos := w.nanos
	if currentTimeNanos < previousTimeNanos {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.nanos = previousTimeNanos
			panic(r)
		}
	}()

	w.nanos = currentTimeNanos
	for i := 0; i < len(w.wheel); i++ {
		previousTicks := previousTimeNanos >> wheelShifts[i]
		currentTicks := currentTimeNanos >> wheelShifts[i]
		delta := currentTicks - previousTicks
		if delta <= 0 {
			break
		}
		w.expire(i, previousTicks, delta, evict)
	}
}

// expire fires the traversed buckets of one level, starting inclusively at
// the previous tick so deadlines inside the tick that was current at
// schedule time are not skipped.
func (w *timerWheel[K, V]) expire(level int, previousTicks, delta int64, evict func(*node[K, V]) bool) {
	buckets := wheelBuckets[level]
	steps := delta + 1
	if steps > buckets {
		steps = buckets
	}
	mask := buckets - 1
	for t := int64(0); t < steps; t++ {
		sentinel := w.wheel[level][(previousTicks+t)&mask]
		// Detach the whole bucket first; rescheduling may relink into it.
		n := sentinel.nextTimer
		sentinel.prevTimer = sentinel
		sentinel.nextTimer = sentinel
		for n != sentinel {
			next := n.nextTimer
			n.prevTimer, n.nextTimer = nil, nil
			if n.variableTime.Load() <= w.nanos {
				if !evict(n) {
					// Concurrently extended while firing; resurrect.
					w.schedule(n)
				}
			} else {
				// Cascade into a finer bucket.
				w.schedule(n)
			}
			n = next
		}
	}
}
