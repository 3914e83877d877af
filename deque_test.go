// deque_test.go: tests for the intrusive order deques
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "testing"

func accessOrder(d *accessDeque[string, int]) []string {
	var keys []string
	for n := d.head; n != nil; n = n.nextAccess {
		keys = append(keys, n.key)
	}
	return keys
}

func TestAccessDequeOrdering(t *testing.T) {
	var d accessDeque[string, int]
	a := &node[string, int]{key: "a"}
	b := &node[string, int]{key: "b"}
	c := &node[string, int]{key: "c"}

	d.linkLast(a)
	d.linkLast(b)
	d.linkLast(c)

	if got := accessOrder(&d); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", got)
	}
	if d.peekFirst() != a || d.peekLast() != c {
		t.Error("peekFirst/peekLast disagree with link order")
	}

	d.moveToBack(a)
	if got := accessOrder(&d); got[0] != "b" || got[2] != "a" {
		t.Errorf("after moveToBack order = %v, want [b c a]", got)
	}

	d.unlink(c)
	if d.contains(c) {
		t.Error("unlinked node still reported as contained")
	}
	if got := accessOrder(&d); len(got) != 2 {
		t.Errorf("after unlink order = %v, want two entries", got)
	}
}

func TestAccessDequeUnlinkEndpoints(t *testing.T) {
	var d accessDeque[string, int]
	a := &node[string, int]{key: "a"}
	d.linkLast(a)
	d.unlink(a)
	if !d.isEmpty() {
		t.Fatal("deque with sole element unlinked must be empty")
	}
	// Re-linking a previously unlinked node must work.
	d.linkLast(a)
	if d.peekFirst() != a {
		t.Error("relinked node not at head")
	}
}

func TestWriteDequeFIFO(t *testing.T) {
	var d writeDeque[string, int]
	a := &node[string, int]{key: "a"}
	b := &node[string, int]{key: "b"}

	d.linkLast(a)
	d.linkLast(b)
	if d.peekFirst() != a {
		t.Error("write order head must be the oldest write")
	}

	d.moveToBack(a)
	if d.peekFirst() != b {
		t.Error("refreshed write must move to the tail")
	}

	d.unlink(b)
	d.unlink(a)
	if !d.isEmpty() {
		t.Error("deque should be empty after unlinking all nodes")
	}
}
