// Copyright (c) 2025 BVK Chaitanya

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetOrFetch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[IndicatorKey, float64](&Options{Now: clock.Now})

	ctx := context.Background()
	key := IndicatorKey{Symbol: "BTC/USDT", Indicator: "rsi", Interval: "1h"}

	var calls atomic.Int32
	fetch := func(context.Context) (float64, error) {
		calls.Add(1)
		return 70.5, nil
	}

	v, err := c.GetOrFetch(ctx, key, time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 70.5, v)

	clock.Advance(30 * time.Second)
	_, err = c.GetOrFetch(ctx, key, time.Minute, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "fresh entry must be served from cache")

	// A shorter ttl for the same key treats the entry as stale.
	_, err = c.GetOrFetch(ctx, key, 10*time.Second, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())

	clock.Advance(2 * time.Minute)
	_, err = c.GetOrFetch(ctx, key, time.Minute, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load(), "expired entry must be fetched again")

	other := IndicatorKey{Symbol: "BTC/USDT", Indicator: "rsi", Interval: "4h"}
	_, err = c.GetOrFetch(ctx, other, time.Minute, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load(), "interval is part of the key")
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New[string, int](nil)
	ctx := context.Background()

	failure := errors.New("upstream failed")
	_, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (int, error) {
		return 0, failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestConcurrentMissesShareFetch(t *testing.T) {
	c := New[string, int](nil)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New[string, int](&Options{Now: clock.Now})

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Hour)
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestZeroTTLBypassesCache(t *testing.T) {
	c := New[string, int](nil)
	n := 0
	for i := 0; i < 3; i++ {
		_, err := c.GetOrFetch(context.Background(), "k", 0, func(context.Context) (int, error) {
			n++
			return n, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, c.Len())
}

func TestCanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	c := New[string, int](nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 7, nil
	}

	actx, cancel := context.WithCancel(context.Background())
	aerr := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(actx, "key", time.Minute, fetch)
		aerr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	bres := make(chan result, 1)
	go func() {
		v, err := c.GetOrFetch(context.Background(), "key", time.Minute, fetch)
		bres <- result{v, err}
	}()

	cancel()
	assert.ErrorIs(t, <-aerr, context.Canceled)

	// Give the second caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)

	r := <-bres
	require.NoError(t, r.err)
	assert.Equal(t, 7, r.v)
	assert.EqualValues(t, 1, calls.Load())

	v, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}
