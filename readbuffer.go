// readbuffer.go: striped, lossy MPSC buffer of read events
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/agilira/xanthos/internal/util"
)

// Result of an offer to the read buffer.
const (
	bufferAdded = iota
	// bufferFailed signals CAS contention; the producer may trigger growth.
	bufferFailed
	// bufferFull signals the selected ring has no room; the cache is
	// producing reads faster than maintenance drains them, so the caller
	// must schedule a drain eagerly.
	bufferFull
)

// ringSize is the capacity of one ring. Must be a power of two.
const ringSize = 16

// ring is a fixed-size single-consumer buffer of node pointers. Producers
// claim slots by CAS on the tail sequence; writes may be rejected (lossy).
type ring[K comparable, V any] struct {
	head  util.PaddedAtomicInt64
	tail  util.PaddedAtomicInt64
	slots [ringSize]atomic.Pointer[node[K, V]]
}

func (r *ring[K, V]) offer(n *node[K, V]) int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head >= ringSize {
		return bufferFull
	}
	if !r.tail.CompareAndSwap(tail, tail+1) {
		return bufferFailed
	}
	r.slots[tail&(ringSize-1)].Store(n)
	return bufferAdded
}

// drainTo consumes pending reads in claim order. Single consumer: the
// maintenance engine under the eviction lock. Slots claimed but not yet
// published are left for the next drain.
func (r *ring[K, V]) drainTo(consumer func(*node[K, V])) {
	head := r.head.Load()
	tail := r.tail.Load()
	for ; head != tail; head++ {
		slot := &r.slots[head&(ringSize-1)]
		n := slot.Load()
		if n == nil {
			break
		}
		slot.Store(nil)
		consumer(n)
	}
	r.head.Store(head)
}

// readBuffer stripes rings across producers to keep the read path wait-free
// under contention. The table starts with one ring and doubles on observed
// contention, up to 4 x the nearest power of two of GOMAXPROCS.
type readBuffer[K comparable, V any] struct {
	table      atomic.Pointer[[]*ring[K, V]]
	growMu     sync.Mutex
	maxStripes int
}

func newReadBuffer[K comparable, V any]() *readBuffer[K, V] {
	b := &readBuffer[K, V]{
		maxStripes: 4 * int(util.CeilingPowerOfTwo(uint64(runtime.GOMAXPROCS(0)))),
	}
	table := []*ring[K, V]{new(ring[K, V])}
	b.table.Store(&table)
	return b
}

// offer records a read of n. The probe selects a stripe; contention rehashes
// the probe once and then triggers table growth.
func (b *readBuffer[K, V]) offer(probe uint64, n *node[K, V]) int {
	table := *b.table.Load()
	result := table[probe&uint64(len(table)-1)].offer(n)
	if result == bufferFailed {
		probe = probe*0x9e3779b97f4a7c15 + 1
		table = *b.table.Load()
		result = table[probe&uint64(len(table)-1)].offer(n)
		if result == bufferFailed {
			b.expand()
		}
	}
	return result
}

// expand doubles the stripe table, preserving existing rings so buffered
// reads survive growth.
func (b *readBuffer[K, V]) expand() {
	b.growMu.Lock()
	defer b.growMu.Unlock()
	table := *b.table.Load()
	if len(table) >= b.maxStripes {
		return
	}
	grown := make([]*ring[K, V], 2*len(table))
	copy(grown, table)
	for i := len(table); i < len(grown); i++ {
		grown[i] = new(ring[K, V])
	}
	b.table.Store(&grown)
}

// drainTo consumes every stripe. Single consumer contract as for ring.
func (b *readBuffer[K, V]) drainTo(consumer func(*node[K, V])) {
	table := *b.table.Load()
	for _, r := range table {
		r.drainTo(consumer)
	}
}
