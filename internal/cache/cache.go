// Package cache holds remote-fetched collections keyed by name.
//
// A Cache serves fresh values from memory, serves stale values while a single
// background refresh runs, and shares one in-flight fetch between all callers
// of the same key. Every fetch carries a per-key sequence number; a result is
// stored only if no newer fetch or invalidation was issued for its key in the
// meantime, so a slow response can never overwrite a newer one.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts time for staleness checks.
type Clock interface {
	Now() time.Time
}

// Fetcher loads the full collection for a key.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

type entry[T any] struct {
	value     []T
	fetchedAt time.Time
	hasValue  bool
	invalid   bool
	seq       uint64
}

// Cache is safe for concurrent use. Slices it returns are shared between
// callers and must not be modified.
type Cache[T any] struct {
	mu      sync.Mutex
	group   singleflight.Group
	entries map[string]*entry[T]
	clock   Clock
}

// New creates an empty cache.
func New[T any](clock Clock) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		clock:   clock,
	}
}

func (c *Cache[T]) entry(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	return e
}

// Fetch returns the collection stored under key.
//
// A value younger than staleTime is returned without fetching. An older value
// is returned immediately and refreshed in the background. With no value, or
// after Invalidate, the caller waits for fetch. Errors are returned to the
// callers of that fetch only and are never stored.
//
// ctx bounds the caller's wait; the shared fetch runs without its cancellation.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fetch Fetcher[T], staleTime time.Duration) ([]T, error) {
	c.mu.Lock()
	e := c.entry(key)
	if e.hasValue && !e.invalid {
		value := e.value
		stale := c.clock.Now().Sub(e.fetchedAt) >= staleTime
		c.mu.Unlock()
		if stale {
			c.start(ctx, key, fetch)
		}
		return value, nil
	}
	c.mu.Unlock()

	select {
	case res := <-c.start(ctx, key, fetch):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start joins or launches the fetch for key. The returned channel is buffered,
// so background refreshes may ignore it.
func (c *Cache[T]) start(ctx context.Context, key string, fetch Fetcher[T]) <-chan singleflight.Result {
	shared := context.WithoutCancel(ctx)
	return c.group.DoChan(key, func() (any, error) {
		return c.load(shared, key, fetch)
	})
}

func (c *Cache[T]) load(ctx context.Context, key string, fetch Fetcher[T]) ([]T, error) {
	c.mu.Lock()
	e := c.entry(key)
	e.seq++
	seq := e.seq
	c.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []T{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.seq == seq {
		e.value = value
		e.fetchedAt = c.clock.Now()
		e.hasValue = true
		e.invalid = false
	}
	return value, nil
}

// Peek returns the stored value for key without fetching.
func (c *Cache[T]) Peek(key string) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// Invalidate forces the next Fetch of key to wait for a new fetch. A fetch
// already in flight still answers its callers but its result is not stored
// and later callers do not join it.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.invalid = true
		e.seq++
	}
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidateAll invalidates every key.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		e.invalid = true
		e.seq++
		keys = append(keys, key)
	}
	c.mu.Unlock()
	for _, key := range keys {
		c.group.Forget(key)
	}
}
