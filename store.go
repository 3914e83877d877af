// store.go: sharded concurrent node store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"runtime"
	"sync"

	"github.com/agilira/xanthos/internal/util"
)

// store maps keys to live nodes. It is sharded by key hash so readers and
// writers on distinct keys proceed in parallel; per-key atomicity comes from
// the shard lock, per-entry atomicity from the node's own mutex.
//
// The store owns the live node set. A node is present iff its state is
// alive; maintenance borrows nodes through the policy structures.
type store[K comparable, V any] struct {
	shards []shard[K, V]
	mask   uint64
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*node[K, V]
	_  util.CacheLinePad
}

func newStore[K comparable, V any](initialCapacity int) *store[K, V] {
	n := util.CeilingPowerOfTwo(uint64(2 * runtime.GOMAXPROCS(0)))
	s := &store[K, V]{
		shards: make([]shard[K, V], n),
		mask:   n - 1,
	}
	perShard := initialCapacity / int(n)
	for i := range s.shards {
		s.shards[i].m = make(map[K]*node[K, V], perShard)
	}
	return s
}

func (s *store[K, V]) shardFor(hash uint64) *shard[K, V] {
	return &s.shards[hash&s.mask]
}

// get returns the node mapped to key, or nil.
func (s *store[K, V]) get(hash uint64, key K) *node[K, V] {
	sh := s.shardFor(hash)
	sh.mu.RLock()
	n := sh.m[key]
	sh.mu.RUnlock()
	return n
}

// putIfAbsent installs n unless a mapping exists, returning the prior node
// if one was present.
func (s *store[K, V]) putIfAbsent(n *node[K, V]) *node[K, V] {
	sh := s.shardFor(n.hash)
	sh.mu.Lock()
	if prior, ok := sh.m[n.key]; ok {
		sh.mu.Unlock()
		return prior
	}
	sh.m[n.key] = n
	sh.mu.Unlock()
	return nil
}

// remove unmaps key and returns the removed node, or nil.
func (s *store[K, V]) remove(hash uint64, key K) *node[K, V] {
	sh := s.shardFor(hash)
	sh.mu.Lock()
	n, ok := sh.m[key]
	if ok {
		delete(sh.m, key)
	}
	sh.mu.Unlock()
	return n
}

// removeIfSame unmaps key only while it still maps to expected. Used by
// eviction so a racing reinsert is never clobbered.
func (s *store[K, V]) removeIfSame(expected *node[K, V]) bool {
	sh := s.shardFor(expected.hash)
	sh.mu.Lock()
	n, ok := sh.m[expected.key]
	if !ok || n != expected {
		sh.mu.Unlock()
		return false
	}
	delete(sh.m, expected.key)
	sh.mu.Unlock()
	return true
}

// len returns the number of mappings.
func (s *store[K, V]) len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

// walk visits every node. The callback must not mutate the shard; it runs
// under the shard read lock.
func (s *store[K, V]) walk(fn func(*node[K, V])) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, n := range sh.m {
			fn(n)
		}
		sh.mu.RUnlock()
	}
}

// drainKeys snapshots all nodes; used by InvalidateAll to iterate without
// holding shard locks across callbacks.
func (s *store[K, V]) drainKeys() []*node[K, V] {
	nodes := make([]*node[K, V], 0, s.len())
	s.walk(func(n *node[K, V]) { nodes = append(nodes, n) })
	return nodes
}
