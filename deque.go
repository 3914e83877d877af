// deque.go: intrusive access-order and write-order deques
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

// accessDeque is a doubly linked list threaded through the node access
// links. The eden, probation and protected queues are each one deque; head
// is least recently used. Used only under the eviction lock.
type accessDeque[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (d *accessDeque[K, V]) isEmpty() bool { return d.head == nil }

func (d *accessDeque[K, V]) peekFirst() *node[K, V] { return d.head }

func (d *accessDeque[K, V]) peekLast() *node[K, V] { return d.tail }

// contains reports membership by link inspection; a linked node has a
// neighbor or is the deque's only element.
func (d *accessDeque[K, V]) contains(n *node[K, V]) bool {
	return n.prevAccess != nil || n.nextAccess != nil || n == d.head
}

func (d *accessDeque[K, V]) linkLast(n *node[K, V]) {
	if d.tail == nil {
		d.head, d.tail = n, n
		return
	}
	n.prevAccess = d.tail
	d.tail.nextAccess = n
	d.tail = n
}

func (d *accessDeque[K, V]) unlink(n *node[K, V]) {
	if n.prevAccess != nil {
		n.prevAccess.nextAccess = n.nextAccess
	} else if d.head == n {
		d.head = n.nextAccess
	}
	if n.nextAccess != nil {
		n.nextAccess.prevAccess = n.prevAccess
	} else if d.tail == n {
		d.tail = n.prevAccess
	}
	n.prevAccess, n.nextAccess = nil, nil
}

func (d *accessDeque[K, V]) moveToBack(n *node[K, V]) {
	if n == d.tail {
		return
	}
	d.unlink(n)
	d.linkLast(n)
}

// writeDeque orders nodes by write time, oldest first, threaded through the
// node write links. Consulted only by expires-after-write. Used only under
// the eviction lock.
type writeDeque[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (d *writeDeque[K, V]) isEmpty() bool { return d.head == nil }

func (d *writeDeque[K, V]) peekFirst() *node[K, V] { return d.head }

func (d *writeDeque[K, V]) contains(n *node[K, V]) bool {
	return n.prevWrite != nil || n.nextWrite != nil || n == d.head
}

func (d *writeDeque[K, V]) linkLast(n *node[K, V]) {
	if d.tail == nil {
		d.head, d.tail = n, n
		return
	}
	n.prevWrite = d.tail
	d.tail.nextWrite = n
	d.tail = n
}

func (d *writeDeque[K, V]) unlink(n *node[K, V]) {
	if n.prevWrite != nil {
		n.prevWrite.nextWrite = n.nextWrite
	} else if d.head == n {
		d.head = n.nextWrite
	}
	if n.nextWrite != nil {
		n.nextWrite.prevWrite = n.prevWrite
	} else if d.tail == n {
		d.tail = n.prevWrite
	}
	n.prevWrite, n.nextWrite = nil, nil
}

func (d *writeDeque[K, V]) moveToBack(n *node[K, V]) {
	if n == d.tail {
		return
	}
	d.unlink(n)
	d.linkLast(n)
}
