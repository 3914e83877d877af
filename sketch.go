// sketch.go: 4-bit Count-Min frequency sketch with periodic aging
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"math/bits"
	"math/rand/v2"

	"github.com/agilira/xanthos/internal/util"
)

const (
	// sketchReset strips the low bit carried out of every 4-bit counter
	// when the table ages by a right shift.
	sketchReset = uint64(0x7777777777777777)

	// sketchOne selects the low bit of every 4-bit counter; its popcount is
	// the number of odd counters truncated by an aging pass.
	sketchOne = uint64(0x1111111111111111)
)

// sketchSeeds are derived from pieces of well-known hash constants; one per
// counter dimension.
var sketchSeeds = [4]uint64{
	0xc3a5c85c97cb3127,
	0xb492b66fbe98f273,
	0x9ae16a3b2f90404f,
	0xcbf29ce484222325,
}

// frequencySketch is a probabilistic multiset of key popularity. Each 64-bit
// word packs sixteen 4-bit counters; a key maps to four counters in four
// independent dimensions and its frequency is their minimum. Counters
// saturate at 15 and the whole table is halved once the number of observed
// increments reaches sampleSize, so stale popularity decays.
//
// The sketch has a single-writer contract: only the maintenance engine
// touches it, under the eviction lock, so no operation here is atomic.
type frequencySketch struct {
	table      []uint64
	tableMask  uint64
	sampleSize int
	size       int

	// randomSeed perturbs the spread function per instance so an attacker
	// cannot precompute colliding keys (hash flooding).
	randomSeed uint64
}

// ensureCapacity grows the sketch to track maximum entries. Growing resets
// all counters; shrink requests are ignored.
func (s *frequencySketch) ensureCapacity(maximum int64) {
	if maximum < 0 {
		maximum = 0
	}
	size := util.CeilingPowerOfTwo(uint64(maximum))
	if s.table != nil && uint64(len(s.table)) >= size {
		return
	}
	if size < 8 {
		size = 8
	}
	s.table = make([]uint64, size)
	s.tableMask = size - 1
	if maximum == 0 {
		s.sampleSize = 10
	} else {
		s.sampleSize = int(min(10*maximum, int64(^uint(0)>>1)))
	}
	s.size = 0
	if s.randomSeed == 0 {
		s.randomSeed = rand.Uint64() | 1
	}
}

// isInitialized reports whether ensureCapacity has run.
func (s *frequencySketch) isInitialized() bool {
	return s.table != nil
}

// frequency returns the estimated number of occurrences of the key, in 0..15.
func (s *frequencySketch) frequency(keyHash uint64) int {
	if !s.isInitialized() {
		return 0
	}
	hash := s.spread(keyHash)
	start := (hash & 3) << 2
	frequency := 15
	for i := 0; i < 4; i++ {
		index := s.indexOf(hash, i)
		count := int((s.table[index] >> ((start + uint64(i)) << 2)) & 0xf)
		if count < frequency {
			frequency = count
		}
	}
	return frequency
}

// increment adds one occurrence of the key, saturating each counter at 15.
// Every sampleSize observed increments trigger an aging pass.
func (s *frequencySketch) increment(keyHash uint64) {
	if !s.isInitialized() {
		return
	}
	hash := s.spread(keyHash)
	start := (hash & 3) << 2

	added := false
	for i := 0; i < 4; i++ {
		index := s.indexOf(hash, i)
		added = s.incrementAt(index, start+uint64(i)) || added
	}
	if added {
		s.size++
		if s.size == s.sampleSize {
			s.reset()
		}
	}
}

// incrementAt bumps the j-th counter of table[i], reporting false when the
// counter is already saturated.
func (s *frequencySketch) incrementAt(i uint64, j uint64) bool {
	offset := j << 2
	mask := uint64(0xf) << offset
	if s.table[i]&mask != mask {
		s.table[i] += 1 << offset
		return true
	}
	return false
}

// reset halves every counter and discounts the sample size by the truncation
// loss: each odd counter loses half an observation, four counters per key.
func (s *frequencySketch) reset() {
	count := 0
	for i := range s.table {
		count += bits.OnesCount64(s.table[i] & sketchOne)
		s.table[i] = (s.table[i] >> 1) & sketchReset
	}
	s.size = (s.size >> 1) - (count >> 2)
}

// indexOf picks the table slot for the i-th counter dimension.
func (s *frequencySketch) indexOf(item uint64, i int) uint64 {
	hash := sketchSeeds[i] * item
	hash += hash >> 32
	return hash & s.tableMask
}

// spread applies a supplemental hash so keys with similar low bits occupy
// independent counters. Two multiply-shift rounds over the seeded input.
func (s *frequencySketch) spread(x uint64) uint64 {
	x ^= s.randomSeed
	x = ((x >> 16) ^ x) * 0x45d9f3b
	x = ((x >> 16) ^ x) * 0x45d9f3b
	return (x >> 16) ^ x
}
