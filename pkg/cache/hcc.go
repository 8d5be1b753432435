// This module implements an expirable CLOCK cache.
// Eviction Policy (CLOCK Algorithm):
// The cache keeps its entries in a doubly linked list walked as a ring by a "hand". When the cache is full and a new
// item needs to be added, the hand checks the entry it's pointing to:
//   - If the entry's reference bit is 'true', it sets it to 'false' and moves to the next entry.
//     This gives the entry a "second chance".
//   - If the entry's reference bit is 'false', it evicts that entry and replaces it with the new one.
//
// Expiration Policy (TTL with Reaper):
// Entries are given a Time-To-Live (TTL). To manage expirations efficiently, entries are distributed to time-based
// 'buckets'. A background goroutine, the "reaper", periodically wakes up and clears the buckets whose time has passed,
// effectively deleting items that have lived past their TTL. This avoids scanning the entire cache for expired items.

package cache

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nobletooth/dlist/pkg/list"
	"github.com/nobletooth/dlist/pkg/utils"
)

// clockEntry represents a single entry in the cache. It contains the key-value pair, the reference bit for the
// clock algorithm, and expiration details.
type clockEntry[K comparable, V any] struct {
	key   K
	value V
	// ref is the reference bit. 'true' means the entry has been accessed since the hand last passed it. It's atomic
	// since Get only holds the read lock.
	ref       atomic.Bool
	expiresAt time.Time
}

type clockNode[K comparable, V any] = list.Node[*clockEntry[K, V]]

// getTimeBucket rounds down the timestamp to the last timestamp that the reaper cleared given the tickInterval.
func getTimeBucket(timestamp time.Time, tickInterval time.Duration) time.Time {
	return time.Unix(0, (timestamp.UnixNano()/int64(tickInterval))*int64(tickInterval))
}

// HyperClock is a thread-safe, fixed-capacity, in-memory cache that combines the CLOCK (Second-Chance)
// eviction algorithm with a time-based expiration mechanism.
type HyperClock[K comparable, V any] struct { // Implements Layer.
	capacity int
	// hand points to the next candidate for eviction; it is nil only when the ring is empty.
	hand  *clockNode[K, V]
	index map[K]*clockNode[K, V]
	ring  *list.List[*clockEntry[K, V]] // Walked from front to back, then wraps around.
	// expiryBuckets indexes cache entries to allow expiring a batch of keys together.
	expiryBuckets map[time.Time]map[K]*clockNode[K, V]
	tickInterval  time.Duration
	reaperHand    time.Time // Next bucket to be cleared by the reaper goroutine.
	// evictionCallback runs on eviction in Add and on Purge while the cache lock is held, so it must not call any
	// of the cache methods.
	evictionCallback func(K, V)
	mux              sync.RWMutex
}

var _ Layer[int, int] = (*HyperClock[int, int])(nil)

// NewHyperClock is the constructor for HyperClock. It starts the background reaper goroutine which stops once `ctx`
// is cancelled.
// NOTE: eviction callback function must not call any of the cache methods or else we'll be having a deadlock.
func NewHyperClock[K comparable, V any](ctx context.Context, capacity int, tickInterval time.Duration,
	evictionCallback func(K, V)) *HyperClock[K, V] {
	if capacity <= 0 {
		utils.RaiseInvariant("hcc", "negative_cache_capacity",
			"Invalid capacity has been given to clock cache.", "capacity", capacity)
		capacity = 1
	}
	if tickInterval <= 0 {
		utils.RaiseInvariant("hcc", "negative_tick_interval",
			"Invalid tick interval has been given to clock cache.", "tickInterval", tickInterval)
		tickInterval = time.Second
	}
	clockCache := &HyperClock[K, V]{
		capacity:         capacity,
		index:            make(map[K]*clockNode[K, V], capacity),
		ring:             list.New[*clockEntry[K, V]](),
		expiryBuckets:    make(map[time.Time]map[K]*clockNode[K, V]),
		tickInterval:     tickInterval,
		reaperHand:       getTimeBucket(time.Now(), tickInterval),
		evictionCallback: evictionCallback,
	}
	go clockCache.reaper(ctx)
	return clockCache
}

// Get retrieves a value from the cache for a given key. If the key is found and the entry is not expired, it returns
// the value and true. Accessing an item with Get marks it as recently used by setting its reference bit to true.
func (c *HyperClock[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.RLock()
	defer c.mux.RUnlock()

	entry, keyExists := c.index[key]
	if !keyExists || time.Now().After(entry.Value.expiresAt) {
		return *new(V), false
	}
	entry.Value.ref.Store(true) // Give it a second chance.
	return entry.Value.value, true
}

func (c *HyperClock[K, V]) addToExpiryBucket(entry *clockNode[K, V]) {
	bucket := getTimeBucket(entry.Value.expiresAt, c.tickInterval)
	if _, bucketExists := c.expiryBuckets[bucket]; !bucketExists {
		c.expiryBuckets[bucket] = make(map[K]*clockNode[K, V])
	}
	c.expiryBuckets[bucket][entry.Value.key] = entry
}

func (c *HyperClock[K, V]) removeFromExpiryBucket(entry *clockNode[K, V]) {
	bucket := getTimeBucket(entry.Value.expiresAt, c.tickInterval)
	delete(c.expiryBuckets[bucket], entry.Value.key)
	if len(c.expiryBuckets[bucket]) == 0 {
		delete(c.expiryBuckets, bucket)
	}
}

// after returns the node following `entry` on the ring.
func (c *HyperClock[K, V]) after(entry *clockNode[K, V]) *clockNode[K, V] {
	if next := entry.Next(); next != nil {
		return next
	}
	return c.ring.Front() // Wrap around to the front if at the end of the list.
}

// unlink removes `entry` from the ring and every index, moving the hand off it first.
func (c *HyperClock[K, V]) unlink(entry *clockNode[K, V]) {
	if c.hand == entry {
		c.hand = c.after(entry)
		if c.hand == entry { // It was the only entry.
			c.hand = nil
		}
	}
	delete(c.index, entry.Value.key)
	c.removeFromExpiryBucket(entry)
	c.ring.Delete(entry)
}

// Add inserts or updates a key-value pair in the cache. If the key already exists, its value and expiration are
// updated. If the cache is full, it evicts an old entry using the CLOCK algorithm. It returns true if an eviction
// occurred, and false otherwise.
func (c *HyperClock[K, V]) Add(key K, value V, ttl time.Duration) /*evictionOccurred*/ bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	// Update existing entry.
	if entry, keyExists := c.index[key]; keyExists {
		c.removeFromExpiryBucket(entry)
		entry.Value.value = value
		entry.Value.ref.Store(true)
		entry.Value.expiresAt = time.Now().Add(ttl)
		c.addToExpiryBucket(entry)
		return false
	}

	// Add new entry (if cache is not full).
	if c.ring.Len() < c.capacity {
		entry := c.ring.AddToTail(&clockEntry[K, V]{key: key, value: value, expiresAt: time.Now().Add(ttl)})
		c.addToExpiryBucket(entry)
		c.index[key] = entry
		if c.hand == nil {
			c.hand = entry
		}
		return false
	}

	// Eviction loop (cache is full, so the hand is never nil here).
	for {
		entry := c.hand
		entryValue := entry.Value
		// Find a victim: an entry that is either unreferenced OR expired.
		if !entryValue.ref.Load() || time.Now().After(entryValue.expiresAt) {
			delete(c.index, entryValue.key)
			c.removeFromExpiryBucket(entry)
			evictedKey, evictedValue := entryValue.key, entryValue.value
			// Reuse the evicted node for the new entry.
			entryValue.key = key
			entryValue.value = value
			entryValue.ref.Store(false)
			entryValue.expiresAt = time.Now().Add(ttl)
			c.addToExpiryBucket(entry)
			c.index[key] = entry
			c.hand = c.after(entry)
			if c.evictionCallback != nil {
				c.evictionCallback(evictedKey, evictedValue)
			}
			return true
		}
		entryValue.ref.Store(false)
		c.hand = c.after(entry)
	}
}

// Remove drops `key` from the cache without running the eviction callback.
func (c *HyperClock[K, V]) Remove(key K) /*found*/ bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	entry, keyExists := c.index[key]
	if !keyExists {
		return false
	}
	c.unlink(entry)
	return true
}

// Keys returns the keys of all unexpired entries.
func (c *HyperClock[K, V]) Keys() []K {
	c.mux.RLock()
	defer c.mux.RUnlock()

	now := time.Now()
	keys := slices.Collect(maps.Keys(c.index))
	return slices.DeleteFunc(keys, func(key K) bool { return now.After(c.index[key].Value.expiresAt) })
}

func (c *HyperClock[K, V]) Len() int {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.ring.Len()
}

func (c *HyperClock[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()

	for entry := c.ring.Front(); entry != nil; entry = c.ring.Front() {
		evictedKey, evictedValue := entry.Value.key, entry.Value.value
		c.unlink(entry)
		if c.evictionCallback != nil {
			c.evictionCallback(evictedKey, evictedValue)
		}
	}
}

// reaper is a background goroutine that handles entry expiration. It wakes up every tick interval and clears the
// buckets of entries that have expired.
func (c *HyperClock[K, V]) reaper(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reap(time.Now())
		}
	}
}

// reap clears every bucket that ends before `now`. There can be more than one such bucket in case of high CPU usage.
func (c *HyperClock[K, V]) reap(now time.Time) {
	c.mux.Lock()
	defer c.mux.Unlock()

	// A bucket holds entries expiring in [bucket, bucket+tickInterval); it is only safe to clear once that
	// window has fully passed.
	for !c.reaperHand.Add(c.tickInterval).After(now) {
		for _, entry := range c.expiryBuckets[c.reaperHand] {
			c.unlink(entry)
		}
		delete(c.expiryBuckets, c.reaperHand)
		c.reaperHand = c.reaperHand.Add(c.tickInterval)
	}
}
