// The list store is the backend used by dlist ports, e.g. Redis. Every key holds either a list or a stack of
// strings. Keys live in a bounded cache layer, so the least valuable keys are evicted once the store is full and
// every write refreshes the key TTL. Keys whose container becomes empty are removed, like Redis does.

package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nobletooth/dlist/pkg/cache"
	"github.com/nobletooth/dlist/pkg/list"
	"github.com/nobletooth/dlist/pkg/scan"
	"github.com/nobletooth/dlist/pkg/stack"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	keyCachePolicy  = flag.String("key_cache_policy", "lru", "Eviction policy of stored keys: lru/clock.")
	keyCapacity     = flag.Int("key_capacity", 100_000, "The maximum number of keys to keep in each key shard.")
	keyShardCount   = flag.Int("key_shard_count", 1, "The number of key shards; each shard has its own lock.")
	keyTtl          = flag.Duration("key_ttl", 24*time.Hour, "The TTL of a key, refreshed on every write.")
	keyTickInterval = flag.Duration("key_tick_interval", time.Second, "How often the clock policy reaps keys.")
	keyDoorkeeper   = flag.Bool("key_doorkeeper", false, "Only retain keys that were written at least twice.")

	evictedKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlist_evicted_keys_total",
		Help: "Total number of keys evicted from the list store.",
	})
)

// ErrWrongType is returned when a list command targets a stack key or the other way around.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// End chooses the end of a list a command operates on.
type End uint8

const (
	Head End = iota
	Tail
)

// container is what the store keeps for each key; exactly one of the fields is set.
type container struct {
	list  *list.List[string]
	stack *stack.Stack[string]
}

func (c *container) len() int {
	if c.stack != nil {
		return c.stack.Len()
	}
	return c.list.Len()
}

// ListStore holds named lists and stacks. Containers aren't safe for concurrent use, so every command runs under
// the store mutex.
type ListStore struct {
	mux  sync.Mutex
	keys cache.Layer[string, *container]
}

// newKeyLayer builds the key cache layer according to the configured flags.
func newKeyLayer(ctx context.Context) (cache.Layer[string, *container], error) {
	onEviction := func(key string, _ *container) {
		evictedKeys.Inc()
		slog.Debug("Evicted a key from the list store.", "key", key)
	}
	var newShard func() cache.Layer[string, *container]
	switch *keyCachePolicy {
	case "lru":
		newShard = func() cache.Layer[string, *container] { return cache.NewLRU(*keyCapacity, onEviction) }
	case "clock":
		newShard = func() cache.Layer[string, *container] {
			return cache.NewHyperClock(ctx, *keyCapacity, *keyTickInterval, onEviction)
		}
	default:
		return nil, fmt.Errorf("unknown --key_cache_policy %q", *keyCachePolicy)
	}
	if *keyCapacity <= 0 {
		return nil, fmt.Errorf("expected a positive --key_capacity, got %d", *keyCapacity)
	}
	if *keyShardCount <= 0 {
		return nil, fmt.Errorf("expected a positive --key_shard_count, got %d", *keyShardCount)
	}

	layer := newShard()
	if *keyShardCount > 1 {
		layer = cache.NewSharded(newShard, *keyShardCount)
	}
	if *keyDoorkeeper {
		layer = cache.NewDoorkeeper(layer, uint((*keyCapacity)*(*keyShardCount)), 0.01 /*falsePositiveRate*/)
	}
	return layer, nil
}

// NewListStore creates an empty store configured by flags. Background work of the store stops once `ctx` is done.
func NewListStore(ctx context.Context) (*ListStore, error) {
	layer, err := newKeyLayer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create key layer: %w", err)
	}
	return &ListStore{keys: layer}, nil
}

// lookup returns the container of `key`, or nil if the key doesn't exist.
func (s *ListStore) lookup(key string) *container {
	if c, found := s.keys.Get(key); found {
		return c
	}
	return nil
}

// lookupList returns the list of `key`; nil means the key doesn't exist.
func (s *ListStore) lookupList(key string) (*list.List[string], error) {
	c := s.lookup(key)
	if c == nil {
		return nil, nil
	}
	if c.list == nil {
		return nil, ErrWrongType
	}
	return c.list, nil
}

// lookupStack returns the stack of `key`; nil means the key doesn't exist.
func (s *ListStore) lookupStack(key string) (*stack.Stack[string], error) {
	c := s.lookup(key)
	if c == nil {
		return nil, nil
	}
	if c.stack == nil {
		return nil, ErrWrongType
	}
	return c.stack, nil
}

// store refreshes `key` after a write, dropping it once its container is empty. It reports whether the key is still
// held afterwards, since the key layer may turn a write away, e.g. the doorkeeper rejects the first write of a key.
func (s *ListStore) store(key string, c *container) /*retained*/ bool {
	if c.len() == 0 {
		s.keys.Remove(key)
		return false
	}
	s.keys.Add(key, c, *keyTtl)
	_, retained := s.keys.Get(key)
	return retained
}

// Push adds `values` one by one to the given end of the list at `key`, creating the list if needed.
// It returns the list length after the push, or zero if the key layer didn't retain the list.
func (s *ListStore) Push(key string, end End, values ...string) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil {
		return 0, err
	}
	if l == nil {
		l = list.New[string]()
	}
	for _, value := range values {
		if end == Head {
			l.AddToHead(value)
		} else {
			l.AddToTail(value)
		}
	}
	if !s.store(key, &container{list: l}) {
		slog.Debug("The key layer didn't retain a pushed list.", "key", key)
		return 0, nil
	}
	return l.Len(), nil
}

// Pop removes a value from the given end of the list at `key`. It returns false if the key doesn't exist.
func (s *ListStore) Pop(key string, end End) (string, bool /*found*/, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return "", false, err
	}
	var value string
	var found bool
	if end == Head {
		value, found = l.RemoveFromHead()
	} else {
		value, found = l.RemoveFromTail()
	}
	s.store(key, &container{list: l})
	return value, found, nil
}

// Len returns the length of the list at `key`; missing keys have a length of zero.
func (s *ListStore) Len(key string) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return 0, err
	}
	return l.Len(), nil
}

// Range returns the values between the `start` and `stop` indexes (both inclusive) of the list at `key`.
// Negative indexes count from the tail, -1 being the last value; out of range indexes are clamped.
func (s *ListStore) Range(key string, start, stop int) ([]string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return []string{}, err
	}
	length := l.Len()
	if start < 0 {
		start = max(length+start, 0)
	}
	if stop < 0 {
		stop = length + stop
	}
	stop = min(stop, length-1)
	if start > stop {
		return []string{}, nil
	}
	values := make([]string, 0, stop-start+1)
	idx := 0
	for value := range l.All() {
		if idx > stop {
			break
		}
		if idx >= start {
			values = append(values, value)
		}
		idx++
	}
	return values, nil
}

// Max returns the greatest value of the list at `key` in byte-wise order. It returns false if the key doesn't exist.
func (s *ListStore) Max(key string) (string, bool /*found*/, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return "", false, err
	}
	value, found := list.Max(l)
	return value, found, nil
}

// Remove deletes occurrences of `value` from the list at `key` and returns how many were deleted.
// A positive `count` removes up to count occurrences walking from the head, a negative one walks from the tail,
// and zero removes every occurrence.
func (s *ListStore) Remove(key string, count int, value string) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return 0, err
	}
	limit := l.Len() // A zero count removes every occurrence.
	if count > 0 {
		limit = min(count, limit)
	} else if count < 0 && count > -limit { // Counts beyond the length are clamped before negating.
		limit = -count
	}
	removed := 0
	start, step := l.Front(), (*list.Node[string]).Next
	if count < 0 {
		start, step = l.Back(), (*list.Node[string]).Prev
	}
	for node := start; node != nil && removed < limit; {
		following := step(node)
		if node.Value == value {
			l.Delete(node)
			removed++
		}
		node = following
	}
	s.store(key, &container{list: l})
	return removed, nil
}

// Reposition moves the first occurrence of `value` in the list at `key` to the given end.
// It returns false if there's no such value.
func (s *ListStore) Reposition(key string, value string, end End) (bool /*found*/, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	l, err := s.lookupList(key)
	if err != nil || l == nil {
		return false, err
	}
	for node := l.Front(); node != nil; node = node.Next() {
		if node.Value != value {
			continue
		}
		if end == Head {
			l.MoveToFront(node)
		} else {
			l.MoveToEnd(node)
		}
		s.store(key, &container{list: l})
		return true, nil
	}
	return false, nil
}

// StackPush pushes `values` one by one onto the stack at `key`, creating the stack if needed.
// It returns the stack size after the push, or zero if the key layer didn't retain the stack.
func (s *ListStore) StackPush(key string, values ...string) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	st, err := s.lookupStack(key)
	if err != nil {
		return 0, err
	}
	if st == nil {
		st = stack.New[string]()
	}
	for _, value := range values {
		st.Push(value)
	}
	if !s.store(key, &container{stack: st}) {
		slog.Debug("The key layer didn't retain a pushed stack.", "key", key)
		return 0, nil
	}
	return st.Len(), nil
}

// StackPop pops the top of the stack at `key`. It returns false if the key doesn't exist.
func (s *ListStore) StackPop(key string) (string, bool /*found*/, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	st, err := s.lookupStack(key)
	if err != nil || st == nil {
		return "", false, err
	}
	value, found := st.Pop()
	s.store(key, &container{stack: st})
	return value, found, nil
}

// StackPeek returns the top of the stack at `key` without popping it.
func (s *ListStore) StackPeek(key string) (string, bool /*found*/, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	st, err := s.lookupStack(key)
	if err != nil || st == nil {
		return "", false, err
	}
	value, found := st.Peek()
	return value, found, nil
}

// StackLen returns the size of the stack at `key`; missing keys have a size of zero.
func (s *ListStore) StackLen(key string) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	st, err := s.lookupStack(key)
	if err != nil || st == nil {
		return 0, err
	}
	return st.Len(), nil
}

// Delete removes the given keys and returns how many of them existed.
func (s *ListStore) Delete(keys ...string) int {
	s.mux.Lock()
	defer s.mux.Unlock()

	deleted := 0
	for _, key := range keys {
		if s.keys.Remove(key) {
			deleted++
		}
	}
	return deleted
}

// Keys returns the sorted keys matching the glob `pattern`.
func (s *ListStore) Keys(pattern string) []string {
	s.mux.Lock()
	defer s.mux.Unlock()

	matched := slices.Collect(scan.MatchGlob(pattern, slices.Values(s.keys.Keys())))
	slices.Sort(matched)
	return matched
}
