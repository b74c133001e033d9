// Copyright (c) 2025 BVK Chaitanya

// Package cache implements an in-memory response cache with per-lookup
// time-to-live.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/syncmap"
	"golang.org/x/sync/singleflight"
)

// IndicatorKey identifies one technical indicator value for a symbol on a
// candle interval.
type IndicatorKey struct {
	Symbol    string
	Indicator string
	Interval  string
}

func (k IndicatorKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Symbol, k.Indicator, k.Interval)
}

type Options struct {
	// Name is used as the metrics label.
	Name string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.Now == nil {
		v.Now = time.Now
	}
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
	expiresAt time.Time
}

type Cache[K comparable, V any] struct {
	opts Options

	entries syncmap.Map[K, *entry[V]]

	group singleflight.Group
}

func New[K comparable, V any](opts *Options) *Cache[K, V] {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Cache[K, V]{opts: *opts}
}

// Get returns the cached value for the key if it is not expired.
func (c *Cache[K, V]) Get(key K) (v V, ok bool) {
	e, ok := c.entries.Load(key)
	if !ok || !c.opts.Now().Before(e.expiresAt) {
		return v, false
	}
	return e.value, true
}

// GetOrFetch returns the cached value for the key if it was fetched within
// the last ttl duration. Otherwise, it calls the fetch function and caches
// it's result. Concurrent callers missing the same key share a single fetch.
// Errors from the fetch function are returned to all waiting callers and are
// not cached. Non-positive ttl always fetches and doesn't cache the result.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, ttl time.Duration, fetch func(context.Context) (V, error)) (V, error) {
	if ttl <= 0 {
		return fetch(ctx)
	}

	if e, ok := c.entries.Load(key); ok {
		if now := c.opts.Now(); now.Sub(e.fetchedAt) < ttl && now.Before(e.expiresAt) {
			c.opts.Metrics.CacheLookup(c.opts.Name, true)
			return e.value, nil
		}
	}
	c.opts.Metrics.CacheLookup(c.opts.Name, false)

	// Shared fetch must not fail other waiters when this caller gives up.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprint(key), func() (any, error) {
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		now := c.opts.Now()
		c.entries.Store(key, &entry[V]{value: v, fetchedAt: now, expiresAt: now.Add(ttl)})
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, context.Cause(ctx)
	case r := <-ch:
		if r.Err != nil {
			var zero V
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}

// Set stores a value with the given time-to-live.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	now := c.opts.Now()
	c.entries.Store(key, &entry[V]{value: value, fetchedAt: now, expiresAt: now.Add(ttl)})
}

func (c *Cache[K, V]) Delete(key K) {
	c.entries.Delete(key)
}

// Len returns the number of entries including the expired ones that are not
// swept yet.
func (c *Cache[K, V]) Len() int {
	return c.entries.Len()
}

// Sweep removes all expired entries and returns the number of entries
// removed.
func (c *Cache[K, V]) Sweep() int {
	now := c.opts.Now()
	n := 0
	c.entries.Range(func(k K, e *entry[V]) bool {
		if !now.Before(e.expiresAt) && c.entries.CompareAndDelete(k, e) {
			n++
		}
		return true
	})
	return n
}
