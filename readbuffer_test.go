// readbuffer_test.go: tests for the striped lossy read buffer
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "testing"

func TestRingOfferAndDrain(t *testing.T) {
	r := &ring[string, int]{}
	nodes := make([]*node[string, int], 4)
	for i := range nodes {
		nodes[i] = &node[string, int]{key: "k", hash: uint64(i)}
		if got := r.offer(nodes[i]); got != bufferAdded {
			t.Fatalf("offer %d = %d, want bufferAdded", i, got)
		}
	}

	var drained []*node[string, int]
	r.drainTo(func(n *node[string, int]) { drained = append(drained, n) })
	if len(drained) != len(nodes) {
		t.Fatalf("drained %d nodes, want %d", len(drained), len(nodes))
	}
	for i, n := range drained {
		if n != nodes[i] {
			t.Errorf("drain order broken at %d", i)
		}
	}
}

func TestRingReportsFull(t *testing.T) {
	r := &ring[string, int]{}
	n := &node[string, int]{}
	for i := 0; i < ringSize; i++ {
		if got := r.offer(n); got != bufferAdded {
			t.Fatalf("offer %d = %d, want bufferAdded", i, got)
		}
	}
	if got := r.offer(n); got != bufferFull {
		t.Errorf("offer on full ring = %d, want bufferFull", got)
	}

	r.drainTo(func(*node[string, int]) {})
	if got := r.offer(n); got != bufferAdded {
		t.Errorf("offer after drain = %d, want bufferAdded", got)
	}
}

func TestReadBufferLossyUnderPressure(t *testing.T) {
	b := newReadBuffer[string, int]()
	n := &node[string, int]{hash: 42}

	full := 0
	for i := 0; i < 10*ringSize; i++ {
		if b.offer(n.hash, n) == bufferFull {
			full++
		}
	}
	if full == 0 {
		t.Error("a non-drained buffer must eventually report FULL")
	}

	count := 0
	b.drainTo(func(*node[string, int]) { count++ })
	if count == 0 || count > ringSize {
		t.Errorf("drained %d events from one stripe, want 1..%d", count, ringSize)
	}
}

func TestReadBufferExpandPreservesBufferedReads(t *testing.T) {
	b := newReadBuffer[string, int]()
	n := &node[string, int]{hash: 7}
	if b.offer(n.hash, n) != bufferAdded {
		t.Fatal("offer rejected on empty buffer")
	}

	before := len(*b.table.Load())
	b.expand()
	after := len(*b.table.Load())
	if b.maxStripes > 1 && after != 2*before {
		t.Errorf("expand: %d stripes, want %d", after, 2*before)
	}

	count := 0
	b.drainTo(func(*node[string, int]) { count++ })
	if count != 1 {
		t.Errorf("drained %d events after expand, want 1", count)
	}
}
