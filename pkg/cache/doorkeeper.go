// This module implements a bloom filter admission policy (a "doorkeeper") in front of another cache layer.
// Most keys in a skewed workload are seen only once; admitting them pushes useful entries out of the cache. The
// doorkeeper only lets a key into the cache on its second Add, remembering first sightings in a bloom filter. The
// filter is cleared after `resetAfter` first sightings so that stale sightings don't pile up and raise the false
// positive rate.

package cache

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/nobletooth/dlist/pkg/utils"
)

// Doorkeeper wraps a Layer and rejects keys until they've been added twice within the same filter generation.
type Doorkeeper[K comparable, V any] struct { // Implements Layer.
	next       Layer[K, V]
	filter     *bloom.BloomFilter
	resetAfter uint // Number of first sightings after which the filter is cleared.
	sightings  uint
	mux        sync.Mutex // Guards the filter; `next` has its own synchronization.
}

var _ Layer[int, int] = (*Doorkeeper[int, int])(nil)

// NewDoorkeeper builds a doorkeeper sized for `resetAfter` keys with the given false positive rate.
func NewDoorkeeper[K comparable, V any](next Layer[K, V], resetAfter uint, falsePositiveRate float64) *Doorkeeper[K, V] {
	if resetAfter == 0 {
		utils.RaiseInvariant("doorkeeper", "zero_reset_after",
			"Invalid filter size has been given to doorkeeper.", "resetAfter", resetAfter)
		resetAfter = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		utils.RaiseInvariant("doorkeeper", "invalid_false_positive_rate",
			"Invalid false positive rate has been given to doorkeeper.", "falsePositiveRate", falsePositiveRate)
		falsePositiveRate = 0.01
	}
	return &Doorkeeper[K, V]{
		next:       next,
		filter:     bloom.NewWithEstimates(resetAfter, falsePositiveRate),
		resetAfter: resetAfter,
	}
}

func (d *Doorkeeper[K, V]) Get(key K) (V, bool /*found*/) {
	return d.next.Get(key)
}

// admit records a sighting of `key` and reports whether it was seen before.
func (d *Doorkeeper[K, V]) admit(key K) bool {
	d.mux.Lock()
	defer d.mux.Unlock()

	encodedKey := keyBytes(key)
	if d.filter.Test(encodedKey) {
		return true
	}
	if d.sightings >= d.resetAfter { // Start a new generation before recording this sighting.
		d.filter.ClearAll()
		d.sightings = 0
	}
	d.filter.Add(encodedKey)
	d.sightings++
	return false
}

// Add forwards the entry to the wrapped layer if the key is already cached or has been seen before; otherwise it
// only records the sighting and returns false.
func (d *Doorkeeper[K, V]) Add(key K, value V, ttl time.Duration) /*evictionOccurred*/ bool {
	if _, cached := d.next.Get(key); !cached && !d.admit(key) {
		return false
	}
	return d.next.Add(key, value, ttl)
}

func (d *Doorkeeper[K, V]) Remove(key K) /*found*/ bool {
	return d.next.Remove(key)
}

func (d *Doorkeeper[K, V]) Keys() []K {
	return d.next.Keys()
}

func (d *Doorkeeper[K, V]) Len() int {
	return d.next.Len()
}

// Purge clears the wrapped layer along with every recorded sighting.
func (d *Doorkeeper[K, V]) Purge() {
	d.mux.Lock()
	d.filter.ClearAll()
	d.sightings = 0
	d.mux.Unlock()
	d.next.Purge()
}
