package cache

import (
	"strconv"
	"sync"
)

// Versioned caches values derived from a changing source. Entries are
// keyed by the source version, so any change makes older entries
// unreachable; they age out through the LRU.
type Versioned[T any] struct {
	lru     *LRUCache[T]
	version func() uint64

	mu       sync.Mutex
	inflight map[string]*call[T]
}

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func NewVersioned[T any](lru *LRUCache[T], version func() uint64) *Versioned[T] {
	return &Versioned[T]{lru: lru, version: version, inflight: map[string]*call[T]{}}
}

func (v *Versioned[T]) key(k string) string {
	return strconv.FormatUint(v.version(), 10) + ":" + k
}

// Get returns the cached value of k for the current version, computing it
// with fn on a miss. Concurrent misses for the same key share one call.
// Errors are not cached.
func (v *Versioned[T]) Get(k string, fn func() (T, error)) (T, error) {
	key := v.key(k)
	if val, ok := v.lru.Get(key); ok {
		return val, nil
	}

	v.mu.Lock()
	if c, ok := v.inflight[key]; ok {
		v.mu.Unlock()
		<-c.done
		return c.val, c.err
	}
	c := &call[T]{done: make(chan struct{})}
	v.inflight[key] = c
	v.mu.Unlock()

	c.val, c.err = fn()
	if c.err == nil {
		v.lru.Set(key, c.val)
	}

	v.mu.Lock()
	delete(v.inflight, key)
	v.mu.Unlock()
	close(c.done)
	return c.val, c.err
}

// CleanExpired lets a Manager clean the underlying LRU.
func (v *Versioned[T]) CleanExpired() int {
	return v.lru.CleanExpired()
}

func (v *Versioned[T]) Stats() Stats {
	return v.lru.Stats()
}
