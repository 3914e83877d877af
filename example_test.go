// example_test.go: runnable documentation examples
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package xanthos_test

import (
	"fmt"
	"time"

	"github.com/agilira/xanthos"
)

func Example() {
	cache, err := xanthos.New(xanthos.Config[string, string]{
		MaximumSize: 10_000,
	})
	if err != nil {
		panic(err)
	}

	cache.Put("greeting", "hello")
	if v, ok := cache.GetIfPresent("greeting"); ok {
		fmt.Println(v)
	}
	// Output: hello
}

func ExampleCache_GetOrLoad() {
	cache, _ := xanthos.New(xanthos.Config[string, string]{
		MaximumSize: 100,
	})

	value, err := cache.GetOrLoad("user:42", func() (string, error) {
		return "Ada", nil // e.g. a database fetch
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(value)
	// Output: Ada
}

func ExampleCache_Stats() {
	cache, _ := xanthos.New(xanthos.Config[string, int]{
		MaximumSize: 100,
		RecordStats: true,
	})

	cache.Put("k", 1)
	cache.GetIfPresent("k")
	cache.GetIfPresent("missing")

	stats := cache.Stats()
	fmt.Printf("hits=%d misses=%d\n", stats.Hits, stats.Misses)
	// Output: hits=1 misses=1
}

func ExampleConfig_expiration() {
	cache, _ := xanthos.New(xanthos.Config[string, string]{
		MaximumSize:      1_000,
		ExpireAfterWrite: time.Hour,
	})

	cache.Put("session", "token")
	fmt.Println(cache.Has("session"))
	// Output: true
}
