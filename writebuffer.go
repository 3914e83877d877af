// writebuffer.go: lossless MPSC queue of pending write tasks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"runtime"
	"sync/atomic"

	"github.com/agilira/xanthos/internal/util"
)

// writeBuffer is a multi-producer single-consumer queue that grows from a
// small initial capacity to a bounded maximum by chaining fixed-size chunks.
// The producer that claims the first slot past a chunk's end allocates the
// next chunk and publishes the jump link with a CAS; the consumer follows
// the link on drain. Producers never lose an accepted element (lossless);
// enqueue only fails once maxCapacity elements are in flight.
type writeBuffer[T any] struct {
	producerIndex util.PaddedAtomicInt64
	consumerIndex util.PaddedAtomicInt64

	producerChunk atomic.Pointer[wchunk[T]]

	// consumerChunk is advanced only by the single consumer (the
	// maintenance engine under the eviction lock); producers read it as a
	// fallback start for backward chunk lookups.
	consumerChunk atomic.Pointer[wchunk[T]]

	chunkSize   int64
	maxCapacity int64
}

// wchunk is one fixed-size segment of the queue. base is the producer index
// of slot 0.
type wchunk[T any] struct {
	base  int64
	slots []atomic.Pointer[T]
	next  atomic.Pointer[wchunk[T]]
}

// newWriteBuffer creates a queue with the given initial and maximum
// capacities, both rounded up to powers of two.
func newWriteBuffer[T any](initialCapacity, maxCapacity int) *writeBuffer[T] {
	chunkSize := int64(util.CeilingPowerOfTwo(uint64(max(initialCapacity, 2))))
	maxCap := int64(util.CeilingPowerOfTwo(uint64(max(maxCapacity, int(chunkSize)))))
	b := &writeBuffer[T]{
		chunkSize:   chunkSize,
		maxCapacity: maxCap,
	}
	first := &wchunk[T]{slots: make([]atomic.Pointer[T], chunkSize)}
	b.producerChunk.Store(first)
	b.consumerChunk.Store(first)
	return b
}

// enqueue adds t to the queue. It returns false when the queue holds
// maxCapacity unconsumed elements; the caller is expected to run
// maintenance itself to make room.
func (b *writeBuffer[T]) enqueue(t *T) bool {
	for {
		p := b.producerIndex.Load()
		if p-b.consumerIndex.Load() >= b.maxCapacity {
			return false
		}
		if b.producerIndex.CompareAndSwap(p, p+1) {
			chunk := b.chunkFor(p)
			chunk.slots[p-chunk.base].Store(t)
			return true
		}
	}
}

// chunkFor locates or allocates the chunk covering producer index p.
func (b *writeBuffer[T]) chunkFor(p int64) *wchunk[T] {
	chunk := b.producerChunk.Load()
	// Chunks are only reachable forward; when the shared cursor has already
	// passed p, restart from the consumer side, which cannot have advanced
	// beyond an unpublished slot.
	if p < chunk.base {
		chunk = b.consumerChunk.Load()
	}
	for p >= chunk.base+b.chunkSize {
		next := chunk.next.Load()
		if next == nil {
			fresh := &wchunk[T]{
				base:  chunk.base + b.chunkSize,
				slots: make([]atomic.Pointer[T], b.chunkSize),
			}
			if chunk.next.CompareAndSwap(nil, fresh) {
				next = fresh
			} else {
				next = chunk.next.Load()
			}
		}
		chunk = next
	}
	// Advance the shared cursor so later producers start closer to p.
	for {
		current := b.producerChunk.Load()
		if current.base >= chunk.base || b.producerChunk.CompareAndSwap(current, chunk) {
			break
		}
	}
	return chunk
}

// dequeue removes and returns the next element, or nil when the queue is
// observed empty. Single consumer contract. A slot claimed by a producer but
// not yet published is awaited with a bounded spin.
func (b *writeBuffer[T]) dequeue() *T {
	c := b.consumerIndex.Load()
	if c == b.producerIndex.Load() {
		return nil
	}
	chunk := b.consumerChunk.Load()
	if c >= chunk.base+b.chunkSize {
		next := chunk.next.Load()
		if next == nil {
			return nil
		}
		b.consumerChunk.Store(next)
		chunk = next
	}
	slot := &chunk.slots[c-chunk.base]
	t := slot.Load()
	for spins := 0; t == nil; spins++ {
		if spins > 100 {
			return nil
		}
		runtime.Gosched()
		t = slot.Load()
	}
	slot.Store(nil)
	b.consumerIndex.Store(c + 1)
	return t
}
