// This module implements cache sharding which distributes keys uniformly across cache shards. Since each thread-safe
// cache implementation has a mutex to avoid races between reads and writes, sharding helps by distributing the locks.
// In cases where there are multiple goroutines trying to read or write to the sharded cache, each goroutine can only
// lock the shard that their key belongs to and doesn't prevent other goroutines from accessing their intended keys.

package cache

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/nobletooth/dlist/pkg/utils"
)

// keyBytes returns a stable byte representation of `key`, used for hashing and bloom filter lookups.
func keyBytes[K comparable](key K) []byte {
	switch k := any(key).(type) {
	case string:
		return []byte(k)
	case int:
		// Since int's size is architecture-dependent, we should cast it to a fixed-size type before hashing.
		return binary.LittleEndian.AppendUint64(nil, uint64(k))
	case uint:
		return binary.LittleEndian.AppendUint64(nil, uint64(k))
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(k))
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, k)
	case int64:
		return binary.LittleEndian.AppendUint64(nil, uint64(k))
	case uint64:
		return binary.LittleEndian.AppendUint64(nil, k)
	case bool:
		if k {
			return []byte{1}
		}
		return []byte{0}
	default:
		// As a fallback for other types (like structs), use fmt.Sprintf. This is less performant but works for any
		// type that can be printed.
		return []byte(fmt.Sprintf("%#v", key))
	}
}

// hashKey hashes `key` with xxhash.
func hashKey[K comparable](key K) uint64 {
	if s, isString := any(key).(string); isString {
		return xxhash.Sum64String(s) // Avoids copying the string into a byte slice.
	}
	return xxhash.Sum64(keyBytes(key))
}

// Sharded is a cache implementation that distributes keys across multiple underlying cache instances (shards).
// Different keys can be accessed in parallel on different shards, which reduces lock contention.
type Sharded[K comparable, V any] struct { // Implements Layer.
	shards []Layer[K, V]
}

var _ Layer[int, int] = (*Sharded[int, int])(nil)

// NewSharded is the constructor for Sharded. It takes a cacheGenerator function, which is responsible for
// creating individual shard instances, and the desired number of shards (shardCount).
func NewSharded[K comparable, V any](cacheGenerator func() Layer[K, V], shardCount int) *Sharded[K, V] {
	// Ensure there is at least one shard.
	if shardCount <= 0 {
		utils.RaiseInvariant("shard", "negative_shard_count",
			"Invalid shard count has been given to sharded cache.", "shardCount", shardCount)
		shardCount = 1
	}
	sharded := &Sharded[K, V]{shards: make([]Layer[K, V], shardCount)}
	for i := range shardCount {
		sharded.shards[i] = cacheGenerator()
	}
	return sharded
}

// getShard maps the key hash to a shard index.
func (c *Sharded[K, V]) getShard(key K) Layer[K, V] {
	return c.shards[hashKey(key)%uint64(len(c.shards))]
}

// Get finds the appropriate shard for the key and retrieves the value from it.
func (c *Sharded[K, V]) Get(key K) (V, bool /*found*/) {
	return c.getShard(key).Get(key)
}

// Add finds the appropriate shard for the key and adds the key-value pair to it.
func (c *Sharded[K, V]) Add(key K, value V, ttl time.Duration) /*evictionOccurred*/ bool {
	return c.getShard(key).Add(key, value, ttl)
}

// Remove drops the key from its shard.
func (c *Sharded[K, V]) Remove(key K) /*found*/ bool {
	return c.getShard(key).Remove(key)
}

// Keys aggregates the keys from all shards into a single slice. This can be a resource-intensive operation, as it
// requires iterating over every shard and collecting its keys.
func (c *Sharded[K, V]) Keys() []K {
	keys := make([]K, 0)
	for _, shard := range c.shards {
		keys = append(keys, shard.Keys()...)
	}
	return keys
}

func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, shard := range c.shards {
		total += shard.Len()
	}
	return total
}

// Purge clears all items from the cache by calling Purge on every shard.
func (c *Sharded[K, V]) Purge() {
	for _, shard := range c.shards {
		shard.Purge()
	}
}
