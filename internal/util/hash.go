// hash.go: 64-bit key hashing for the node store and frequency sketch
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package util

import (
	"fmt"
	"unsafe"
)

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// Fnv64a hashes common key types using 64-bit FNV-1a.
// Supported: string, []byte, [16]byte, [32]byte, [64]byte, all int/uint widths, uintptr,
// fmt.Stringer. Panicking on unsupported types is deliberate to avoid
// silently poor hashing.
func Fnv64a[K any](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return fnv64aString(v)
	case []byte:
		return fnv64aBytes(v)
	case [16]byte:
		return fnv64aBytes(v[:])
	case [32]byte:
		return fnv64aBytes(v[:])
	case [64]byte:
		return fnv64aBytes(v[:])
	case uint8:
		return fnv64aUint64(uint64(v))
	case uint16:
		return fnv64aUint64(uint64(v))
	case uint32:
		return fnv64aUint64(uint64(v))
	case uint64:
		return fnv64aUint64(v)
	case uint:
		return fnv64aUint64(uint64(v))
	case uintptr:
		return fnv64aUint64(uint64(v))
	case int8:
		return fnv64aUint64(uint64(uint8(v)))
	case int16:
		return fnv64aUint64(uint64(uint16(v)))
	case int32:
		return fnv64aUint64(uint64(uint32(v)))
	case int64:
		return fnv64aUint64(uint64(v))
	case int:
		return fnv64aUint64(uint64(v))
	case fmt.Stringer:
		return fnv64aString(v.String())
	default:
		panic(fmt.Sprintf("util.Fnv64a: unsupported key type %T; convert the key to string or hash it upstream", k))
	}
}

// fnv64aString avoids the []byte conversion allocation.
// #nosec G103 - read-only view of the string data
func fnv64aString(s string) uint64 {
	return fnv64aBytes(unsafe.Slice(unsafe.StringData(s), len(s)))
}

func fnv64aBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

func fnv64aUint64(u uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
