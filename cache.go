// cache.go: bounded concurrent W-TinyLFU cache core
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package xanthos

import (
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/agilira/xanthos/internal/util"
)

// Cache is a bounded, concurrent, in-process key-value cache applying the
// W-TinyLFU admission policy over three LRU segments (eden, main-probation,
// main-protected), with after-write, after-access and per-entry variable
// expiration plus optional asynchronous refresh.
//
// Reads and writes never serialize on the policy: they record events into
// lossy read and lossless write buffers, and a single maintenance routine
// drains those buffers under the eviction lock and applies the batched
// effects. Policy state is therefore eventually consistent with respect to
// the public operations, while per-key operations stay linearizable through
// the store and the node monitors.
type Cache[K comparable, V any] struct {
	store       *store[K, V]
	readBuffer  *readBuffer[K, V]
	writeBuffer *writeBuffer[task[K, V]]

	evictionLock sync.Mutex
	drainStatus  atomic.Int32

	// Policy structures below are owned by the maintenance engine and are
	// only touched under the eviction lock.
	sketch     frequencySketch
	eden       accessDeque[K, V]
	probation  accessDeque[K, V]
	protected  accessDeque[K, V]
	writeOrder writeDeque[K, V]
	wheel      *timerWheel[K, V]
	random     uint64

	maximum                   atomic.Int64
	edenMaximum               atomic.Int64
	mainProtectedMaximum      atomic.Int64
	weightedSize              atomic.Int64
	edenWeightedSize          atomic.Int64
	mainProtectedWeightedSize atomic.Int64

	timeProvider    TimeProvider
	executor        Executor
	logger          Logger
	stats           StatsCounter
	weigher         Weigher[K, V]
	expiry          Expiry[K, V]
	loader          Loader[K, V]
	removalListener RemovalListener[K, V]
	writer          CacheWriter[K, V]

	expiresAfterWriteNanos  int64
	expiresAfterAccessNanos int64
	refreshAfterWriteNanos  int64

	// Feature selection decided at construction; unused policy arms are
	// never entered.
	evicts             bool
	weighted           bool
	expiresAfterWrite  bool
	expiresAfterAccess bool
	expiresVariable    bool
	refreshes          bool

	inflight sync.Map // K -> *flight[V]
}

// task is one pending write-buffer operation applied during drain.
type task[K comparable, V any] struct {
	kind        taskKind
	node        *node[K, V]
	weightDelta int64
}

type taskKind uint8

const (
	taskAdd taskKind = iota
	taskUpdate
	taskRemove
)

// Write buffer sizing, in tasks. The buffer starts small and grows by
// chunk chaining up to a bound scaled to the machine.
const writeBufferInitial = 4

// New creates a cache from the configuration. The configuration is
// validated and defaulted; contradictory settings return a coded error.
func New[K comparable, V any](config Config[K, V]) (*Cache[K, V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[K, V]{
		store:        newStore[K, V](config.InitialCapacity),
		readBuffer:   newReadBuffer[K, V](),
		timeProvider: config.TimeProvider,
		executor:     config.Executor,
		logger:       config.Logger,
		stats:        config.StatsCounter,
		expiry:       config.ExpireAfter,
		loader:       config.Loader,

		removalListener: config.RemovalListener,
		writer:          config.Writer,

		expiresAfterWriteNanos:  config.ExpireAfterWrite.Nanoseconds(),
		expiresAfterAccessNanos: config.ExpireAfterAccess.Nanoseconds(),
		refreshAfterWriteNanos:  config.RefreshAfterWrite.Nanoseconds(),

		evicts:             true,
		weighted:           config.MaximumWeight > 0,
		expiresAfterWrite:  config.ExpireAfterWrite > 0,
		expiresAfterAccess: config.ExpireAfterAccess > 0,
		expiresVariable:    config.ExpireAfter != nil,
		refreshes:          config.RefreshAfterWrite > 0,

		random: rand.Uint64() | 1,
	}

	if config.Weigher != nil {
		c.weigher = config.Weigher
	} else {
		c.weigher = func(K, V) int { return 1 }
	}

	maximum := config.MaximumSize
	if c.weighted {
		maximum = config.MaximumWeight
	}
	c.setMaximum(maximum)

	writeBufferMax := 128 * int(util.CeilingPowerOfTwo(uint64(runtime.GOMAXPROCS(0))))
	c.writeBuffer = newWriteBuffer[task[K, V]](writeBufferInitial, writeBufferMax)

	if c.expiresVariable {
		c.wheel = newTimerWheel[K, V]()
		c.wheel.nanos = c.timeProvider.Now()
	}
	return c, nil
}

// setMaximum resizes the policy targets. Called at construction and from
// the policy facade under the eviction lock.
func (c *Cache[K, V]) setMaximum(maximum int64) {
	if maximum > maximumCapacity {
		maximum = maximumCapacity
	}
	eden := maximum - int64(float64(maximum)*(1.0-percentEden))
	main := maximum - eden
	mainProtected := int64(float64(main) * percentMainProtected)

	c.maximum.Store(maximum)
	c.edenMaximum.Store(eden)
	c.mainProtectedMaximum.Store(mainProtected)
	c.sketch.ensureCapacity(maximum)
}

// GetIfPresent returns the value associated with key without loading.
// An absent or expired mapping records a miss.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	return c.getIfPresent(key, true)
}

// Has checks whether key is present and unexpired without touching stats or
// recency.
func (c *Cache[K, V]) Has(key K) bool {
	n := c.store.get(util.Fnv64a(key), key)
	if n == nil || n.value.Load() == nil {
		return false
	}
	return !c.hasExpired(n, c.timeProvider.Now())
}

func (c *Cache[K, V]) getIfPresent(key K, recordStats bool) (V, bool) {
	var zero V
	n := c.store.get(util.Fnv64a(key), key)
	if n == nil {
		if recordStats {
			c.stats.RecordMisses(1)
		}
		if c.drainStatus.Load() == drainRequired {
			c.scheduleDrainBuffers()
		}
		return zero, false
	}
	now := c.timeProvider.Now()
	if c.hasExpired(n, now) {
		if recordStats {
			c.stats.RecordMisses(1)
		}
		c.scheduleDrainBuffers()
		return zero, false
	}
	vp := n.value.Load()
	if vp == nil {
		// Raced with the final death of the node.
		if recordStats {
			c.stats.RecordMisses(1)
		}
		return zero, false
	}
	c.afterRead(n, *vp, now, recordStats)
	return *vp, true
}

// afterRead records the access into the read buffer and schedules a drain
// when the policy demands it.
func (c *Cache[K, V]) afterRead(n *node[K, V], value V, now int64, recordHit bool) {
	if recordHit {
		c.stats.RecordHits(1)
	}
	n.accessTime.Store(now)
	if c.expiresVariable {
		current := n.variableTime.Load()
		duration := clampDuration(c.expiry.ExpireAfterRead(n.key, value, now, current-now))
		n.variableTime.Store(saturatingAdd(now, duration))
	}
	c.refreshIfNeeded(n, now)
	delayable := c.readBuffer.offer(n.hash, n) != bufferFull
	if c.shouldDrainBuffers(delayable) {
		c.scheduleDrainBuffers()
	}
}

// Put associates value with key, replacing any current mapping.
func (c *Cache[K, V]) Put(key K, value V) {
	c.put(key, value, false)
}

// PutAll performs Put for every pair in entries.
func (c *Cache[K, V]) PutAll(entries map[K]V) {
	for k, v := range entries {
		c.put(k, v, false)
	}
}

// PutIfAbsent associates value with key unless a live mapping exists, in
// which case the current value is returned with present=true.
func (c *Cache[K, V]) PutIfAbsent(key K, value V) (current V, present bool) {
	return c.put(key, value, true)
}

func (c *Cache[K, V]) put(key K, value V, onlyIfAbsent bool) (V, bool) {
	var zero V
	weight := c.weigher(key, value)
	if weight < 0 {
		panic("xanthos: weigher returned a negative weight")
	}
	hash := util.Fnv64a(key)
	vp := &value

	for {
		n := c.store.get(hash, key)
		if n == nil {
			now := c.timeProvider.Now()
			created := newNode(key, hash, vp, int32(weight), now)
			if c.expiresVariable {
				duration := clampDuration(c.expiry.ExpireAfterCreate(key, value, now))
				created.variableTime.Store(saturatingAdd(now, duration))
			}
			created.mu.Lock()
			if prior := c.store.putIfAbsent(created); prior != nil {
				created.mu.Unlock()
				continue
			}
			func() {
				defer created.mu.Unlock()
				c.writerWrite(key, value)
			}()
			c.afterWrite(task[K, V]{kind: taskAdd, node: created, weightDelta: int64(weight)})
			return zero, false
		}

		n.mu.Lock()
		if !n.isAlive() {
			n.mu.Unlock()
			continue
		}
		oldvp := n.value.Load()
		if onlyIfAbsent {
			now := c.timeProvider.Now()
			expired := c.hasExpired(n, now)
			n.mu.Unlock()
			if expired {
				c.retireExpired(n, now)
				continue
			}
			c.afterRead(n, *oldvp, now, false)
			return *oldvp, true
		}

		now := c.timeProvider.Now()
		oldWeight := n.weight.Load()
		n.value.Store(vp)
		n.weight.Store(int32(weight))
		n.accessTime.Store(now)
		if c.expiresVariable {
			current := n.variableTime.Load()
			duration := clampDuration(c.expiry.ExpireAfterUpdate(key, value, now, current-now))
			n.variableTime.Store(saturatingAdd(now, duration))
		}
		// A large negative delta is a refresh claim; the direct write must
		// reclaim the timestamp so the in-flight reload is discarded.
		if delta := now - n.writeTime.Load(); delta > writeTimeTolerance || delta < -writeTimeTolerance {
			n.writeTime.Store(now)
		}
		changed := !equalValues(*oldvp, value)
		func() {
			defer n.mu.Unlock()
			if changed {
				c.writerWrite(key, value)
			}
		}()
		if changed {
			c.notifyRemoval(key, *oldvp, CauseReplaced)
		}
		c.afterWrite(task[K, V]{kind: taskUpdate, node: n, weightDelta: int64(weight) - int64(oldWeight)})
		return *oldvp, true
	}
}

// retireExpired unmaps and retires a node observed expired, rechecking the
// expiration under the node monitor so a concurrent freshen wins. The
// removal task unlinks it during the next drain.
func (c *Cache[K, V]) retireExpired(n *node[K, V], now int64) {
	n.mu.Lock()
	vp := n.value.Load()
	if vp == nil || !n.isAlive() || !c.hasExpired(n, now) || !c.store.removeIfSame(n) {
		n.mu.Unlock()
		return
	}
	n.retire()
	func() {
		defer n.mu.Unlock()
		c.writerDelete(n.key, *vp, CauseExpired)
	}()
	c.afterWrite(task[K, V]{kind: taskRemove, node: n})
	c.notifyRemoval(n.key, *vp, CauseExpired)
	c.stats.RecordEviction(int(n.weight.Load()))
}

// Invalidate discards the mapping for key, reporting whether one existed.
func (c *Cache[K, V]) Invalidate(key K) bool {
	n := c.store.remove(util.Fnv64a(key), key)
	if n == nil {
		return false
	}
	n.mu.Lock()
	vp := n.value.Load()
	if vp == nil || !n.isAlive() {
		n.mu.Unlock()
		return false
	}
	n.retire()
	func() {
		defer n.mu.Unlock()
		c.writerDelete(key, *vp, CauseExplicit)
	}()
	c.afterWrite(task[K, V]{kind: taskRemove, node: n})
	c.notifyRemoval(key, *vp, CauseExplicit)
	return true
}

// InvalidateKeys discards the mappings for all keys.
func (c *Cache[K, V]) InvalidateKeys(keys []K) {
	for _, key := range keys {
		c.Invalidate(key)
	}
}

// InvalidateAll discards every mapping, notifying with cause EXPLICIT.
func (c *Cache[K, V]) InvalidateAll() {
	c.evictionLock.Lock()
	defer c.evictionLock.Unlock()

	// Settle buffered work so policy structures reflect the live set.
	c.maintenance(nil)

	for _, n := range c.store.drainKeys() {
		n.mu.Lock()
		vp := n.value.Load()
		if vp == nil || !n.isAlive() || !c.store.removeIfSame(n) {
			n.mu.Unlock()
			continue
		}
		n.retire()
		func() {
			defer n.mu.Unlock()
			c.writerDelete(n.key, *vp, CauseExplicit)
		}()
		c.unlinkNode(n)
		c.makeDead(n)
		c.notifyRemoval(n.key, *vp, CauseExplicit)
	}
}

// Clear is an alias for InvalidateAll.
func (c *Cache[K, V]) Clear() {
	c.InvalidateAll()
}

// EstimatedSize returns the approximate number of live entries. The value
// may include entries pending removal by maintenance.
func (c *Cache[K, V]) EstimatedSize() int {
	return c.store.len()
}

// Len is an alias for EstimatedSize.
func (c *Cache[K, V]) Len() int {
	return c.EstimatedSize()
}

// Stats returns a snapshot of the accumulated statistics. When RecordStats
// is disabled all counters read zero.
func (c *Cache[K, V]) Stats() CacheStats {
	return c.stats.Snapshot()
}

// CleanUp runs a maintenance cycle inline: drains the buffers, applies
// expirations and enforces the size bound.
func (c *Cache[K, V]) CleanUp() {
	c.performCleanUp()
}

// Close releases the cache contents. The cache must not be used afterwards.
func (c *Cache[K, V]) Close() error {
	c.InvalidateAll()
	return nil
}

// hasExpired checks every configured expiration policy against now.
func (c *Cache[K, V]) hasExpired(n *node[K, V], now int64) bool {
	if c.expiresAfterAccess && now-n.accessTime.Load() >= c.expiresAfterAccessNanos {
		return true
	}
	if c.expiresAfterWrite && now-n.writeTime.Load() >= c.expiresAfterWriteNanos {
		return true
	}
	if c.expiresVariable && n.variableTime.Load() <= now {
		return true
	}
	return false
}

// writerWrite invokes the CacheWriter write hook; a panic propagates to the
// mutating caller with the cache state already updated.
func (c *Cache[K, V]) writerWrite(key K, value V) {
	if c.writer != nil {
		c.writer.Write(key, value)
	}
}

func (c *Cache[K, V]) writerDelete(key K, value V, cause RemovalCause) {
	if c.writer != nil {
		c.writer.Delete(key, value, cause)
	}
}

// notifyRemoval delivers the removal event on the executor. Listener panics
// are swallowed and logged; they never fail the triggering operation.
func (c *Cache[K, V]) notifyRemoval(key K, value V, cause RemovalCause) {
	if c.removalListener == nil {
		return
	}
	c.executor(func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("removal listener panicked",
					"cause", cause.String(), "panic", r)
			}
		}()
		c.removalListener(key, value, cause)
	})
}

// equalValues reports whether two values compare equal, treating values of
// uncomparable types as always unequal.
func equalValues[V any](a, b V) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return any(a) == any(b)
}

// saturatingAdd adds a non-negative delta to a timestamp without wrapping.
func saturatingAdd(now, delta int64) int64 {
	sum := now + delta
	if sum < now {
		return int64(^uint64(0) >> 1)
	}
	return sum
}

// clampDuration bounds an expiry hook result to the representable range.
func clampDuration(d int64) int64 {
	if d < 0 {
		return 0
	}
	if d > maximumExpiryNanos {
		return maximumExpiryNanos
	}
	return d
}
