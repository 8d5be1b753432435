// This module implements an expirable LRU cache. Entries live in a doubly linked list ordered by recency: hits move
// their entry to the front and the entry at the back is the one evicted once the cache is full. Expired entries are
// dropped lazily when they're looked up or reach the back of the list.

package cache

import (
	"sync"
	"time"

	"github.com/nobletooth/dlist/pkg/list"
	"github.com/nobletooth/dlist/pkg/utils"
)

type lruEntry[K comparable, V any] struct {
	utils.Pair[K, V]
	expiresAt time.Time
}

// LRU is a thread-safe, fixed-capacity cache evicting the least recently used entry.
type LRU[K comparable, V any] struct { // Implements Layer.
	capacity int
	recency  *list.List[lruEntry[K, V]] // Most recently used entry first.
	index    map[K]*list.Node[lruEntry[K, V]]
	// evictionCallback runs while the cache lock is held, so it must not call any of the cache methods.
	evictionCallback func(K, V)
	// Get reorders the recency list, so every method takes the exclusive lock.
	mux sync.Mutex
}

var _ Layer[int, int] = (*LRU[int, int])(nil)

// NewLRU is the constructor for LRU. `evictionCallback` may be nil.
func NewLRU[K comparable, V any](capacity int, evictionCallback func(K, V)) *LRU[K, V] {
	if capacity <= 0 {
		utils.RaiseInvariant("lru", "negative_cache_capacity",
			"Invalid capacity has been given to LRU cache.", "capacity", capacity)
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:         capacity,
		recency:          list.New[lruEntry[K, V]](),
		index:            make(map[K]*list.Node[lruEntry[K, V]], capacity),
		evictionCallback: evictionCallback,
	}
}

// Get returns the value of an unexpired `key` and marks it as the most recently used entry.
func (c *LRU[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	entry, keyExists := c.index[key]
	if !keyExists {
		return *new(V), false
	}
	if time.Now().After(entry.Value.expiresAt) {
		delete(c.index, key)
		c.recency.Delete(entry)
		return *new(V), false
	}
	c.recency.MoveToFront(entry)
	return entry.Value.Value, true
}

// Add inserts or updates `key`. Inserting into a full cache evicts the least recently used entry, in which case
// Add returns true.
func (c *LRU[K, V]) Add(key K, value V, ttl time.Duration) /*evictionOccurred*/ bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	expiresAt := time.Now().Add(ttl)
	if entry, keyExists := c.index[key]; keyExists {
		entry.Value.Value = value
		entry.Value.expiresAt = expiresAt
		c.recency.MoveToFront(entry)
		return false
	}

	evicted := false
	if c.recency.Len() >= c.capacity {
		if victim, found := c.recency.RemoveFromTail(); found {
			delete(c.index, victim.Key)
			// Expired entries aren't reported as evictions; they were already gone for callers.
			if !time.Now().After(victim.expiresAt) {
				evicted = true
				if c.evictionCallback != nil {
					c.evictionCallback(victim.Key, victim.Value)
				}
			}
		}
	}
	c.index[key] = c.recency.AddToHead(lruEntry[K, V]{Pair: utils.Pair[K, V]{Key: key, Value: value}, expiresAt: expiresAt})
	return evicted
}

// Remove drops `key` without running the eviction callback.
func (c *LRU[K, V]) Remove(key K) /*found*/ bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	entry, keyExists := c.index[key]
	if !keyExists {
		return false
	}
	delete(c.index, key)
	c.recency.Delete(entry)
	return true
}

// Keys returns the unexpired keys from the most to the least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()

	now := time.Now()
	keys := make([]K, 0, c.recency.Len())
	for entry := range c.recency.All() {
		if !now.After(entry.expiresAt) {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

func (c *LRU[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.recency.Len()
}

func (c *LRU[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()

	for entry, found := c.recency.RemoveFromTail(); found; entry, found = c.recency.RemoveFromTail() {
		delete(c.index, entry.Key)
		if c.evictionCallback != nil {
			c.evictionCallback(entry.Key, entry.Value)
		}
	}
}
