// hotreload.go: dynamic tuning with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// HotConfig watches a configuration file and applies runtime-tunable cache
// settings when it changes. The one setting the core supports changing at
// runtime is the maximum size or weight, applied through the policy facade;
// other keys are ignored, and OnReload receives only the old and new maximum.
type HotConfig[K comparable, V any] struct {
	cache   *Cache[K, V]
	watcher *argus.Watcher
	logger  Logger

	mu      sync.RWMutex
	maximum int64

	// OnReload is called after a configuration change was applied. Optional;
	// must be fast and non-blocking.
	OnReload func(oldMaximum, newMaximum int64)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully applied.
	OnReload func(oldMaximum, newMaximum int64)

	// Logger for hot reload operations. If nil, the cache's logger is used.
	Logger Logger
}

// NewHotConfig creates a hot-reloadable tuning surface for the cache and
// starts watching the configuration file on Start.
//
// Example configuration file (YAML):
//
//	cache:
//	  maximum: 50000
//
// Supported configuration keys:
//   - cache.maximum (int): maximum size or weight, applied via Policy().SetMaximum
func NewHotConfig[K comparable, V any](cache *Cache[K, V], opts HotConfigOptions) (*HotConfig[K, V], error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = cache.logger
	}

	hc := &HotConfig[K, V]{
		cache:    cache,
		logger:   opts.Logger,
		maximum:  cache.maximum.Load(),
		OnReload: opts.OnReload,
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher
	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig[K, V]) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig[K, V]) Stop() error {
	return hc.watcher.Stop()
}

// Maximum returns the last applied maximum (thread-safe).
func (hc *HotConfig[K, V]) Maximum() int64 {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.maximum
}

// handleConfigChange is called by Argus when the configuration changes.
func (hc *HotConfig[K, V]) handleConfigChange(configData map[string]interface{}) {
	maximum, ok := parseMaximum(configData)
	if !ok {
		return
	}

	hc.mu.Lock()
	old := hc.maximum
	if maximum == old {
		hc.mu.Unlock()
		return
	}
	hc.maximum = maximum
	hc.mu.Unlock()

	if err := hc.cache.Policy().SetMaximum(maximum); err != nil {
		hc.logger.Warn("hot reload rejected maximum", "maximum", maximum, "error", err)
		return
	}
	hc.logger.Info("cache maximum reloaded", "old", old, "new", maximum)

	if hc.OnReload != nil {
		hc.OnReload(old, maximum)
	}
}

// parseMaximum extracts cache.maximum from the watched document. YAML and
// JSON decoders may surface numbers as int or float64.
func parseMaximum(data map[string]interface{}) (int64, bool) {
	section, ok := data["cache"].(map[string]interface{})
	if !ok {
		if _, direct := data["maximum"]; direct {
			section = data
		} else {
			return 0, false
		}
	}
	switch v := section["maximum"].(type) {
	case int:
		if v >= 0 {
			return int64(v), true
		}
	case int64:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int64(v), true
		}
	}
	return 0, false
}
