// Caches keep a bounded number of entries in memory and drop the rest according to their eviction policy.
// This module provides an interface on caching, making single shard caches, multi shard caches and admission
// filters have the same API.

package cache

import "time"

// Layer defines the interface for a generic key-value cache. This allows different cache implementations
// (e.g., LRU, CLOCK) to be used interchangeably and as shards within Sharded.
type Layer[K comparable, V any] interface {
	// Get returns value from cache for given key and a boolean indicating whether key was found.
	Get(key K) (V, bool)
	// Add inserts a key-value pair into the cache with the given TTL. It returns true if an item was evicted.
	Add(key K, value V, ttl time.Duration) bool
	// Remove drops the given key from the cache and reports whether it was present.
	Remove(key K) bool
	Keys() []K // Returns a slice of all keys currently in the cache.
	Len() int  // Returns the number of entries currently held, including expired ones not yet reaped.
	Purge()    // Removes all items from the cache.
}
