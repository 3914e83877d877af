// xanthos.go: version and shared constants
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import "math"

const (
	// Version of the Xanthos cache library
	Version = "v0.1.0-dev"

	// DefaultMaximumSize is the default bound when none is configured
	DefaultMaximumSize = 10_000

	// percentEden is the fraction of the maximum excluded from the main
	// space and reserved for the admission window.
	percentEden = 0.01

	// percentMainProtected is the fraction of the main space reserved for
	// entries that have been accessed more than once.
	percentMainProtected = 0.80

	// admitHashdosThreshold is the frequency above which a losing candidate
	// may still be admitted with small probability, defeating HashDoS
	// attacks that artificially warm colliding victims.
	admitHashdosThreshold = 5

	// maximumCapacity bounds the configured maximum size or weight so all
	// weight arithmetic stays within int64.
	maximumCapacity = int64(math.MaxInt64) - math.MaxInt32

	// maximumExpiryNanos clamps every duration so additions to a nanosecond
	// timestamp stay representable in 63-bit signed arithmetic.
	maximumExpiryNanos = int64(math.MaxInt64) >> 1

	// writeTimeTolerance is the smallest observable change to an entry's
	// write time. Update storms within the tolerance skip the timestamp
	// store; the update task still moves the entry to the write-order tail.
	writeTimeTolerance = int64(1_000_000_000) // 1s
)
