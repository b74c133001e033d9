// Copyright (c) 2025 BVK Chaitanya

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestMinInterval(t *testing.T) {
	l, err := New("test", &Options{MinInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		slot, err := l.Acquire(ctx)
		if err != nil {
			t.Fatal(err)
		}
		slot.Release(http.StatusOK, 0)
	}
	if d := time.Since(start); d < 75*time.Millisecond {
		t.Fatalf("want at least 80ms for five acquisitions, took %s", d)
	}
}

func TestPenaltyEscalation(t *testing.T) {
	l, err := New("test", &Options{
		MinInterval: time.Millisecond,
		PenaltyMin:  10 * time.Millisecond,
		PenaltyMax:  40 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	var penalties []time.Duration
	for i := 0; i < 4; i++ {
		slot, err := l.Acquire(ctx)
		if err != nil {
			t.Fatal(err)
		}
		now := time.Now()
		slot.Release(http.StatusTooManyRequests, 0)
		penalties = append(penalties, l.PenaltyUntil().Sub(now))
	}

	if v := l.Throttled(); v != 4 {
		t.Fatalf("want 4 consecutive throttles, got %d", v)
	}
	for i := 1; i < len(penalties); i++ {
		if penalties[i] < penalties[i-1]-time.Millisecond {
			t.Fatalf("penalty did not escalate: %v", penalties)
		}
	}
	if last := penalties[len(penalties)-1]; last > 45*time.Millisecond {
		t.Fatalf("penalty %s exceeds the maximum", last)
	}

	slot, err := l.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	slot.Release(http.StatusOK, 0)
	if v := l.Throttled(); v != 0 {
		t.Fatalf("want throttle count reset after success, got %d", v)
	}
}

func TestRetryAfter(t *testing.T) {
	l, err := New("test", &Options{MinInterval: time.Millisecond, PenaltyMin: time.Millisecond, PenaltyMax: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	slot, err := l.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	slot.Release(http.StatusTooManyRequests, time.Hour)
	if d := time.Until(l.PenaltyUntil()); d < 59*time.Minute {
		t.Fatalf("want retry-after to extend the penalty, got %s", d)
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(tctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded while penalized, got %v", err)
	}
}

func TestDoubleRelease(t *testing.T) {
	l, err := New("test", &Options{MinInterval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	slot, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	slot.Release(http.StatusTooManyRequests, 0)
	slot.Release(http.StatusTooManyRequests, 0)
	if v := l.Throttled(); v != 1 {
		t.Fatalf("want one throttle, got %d", v)
	}

	// Transport failures do not reset the throttle count.
	l.mu.Lock()
	l.penaltyUntil = time.Time{}
	l.mu.Unlock()
	slot, err = l.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	slot.Release(0, 0)
	if v := l.Throttled(); v != 1 {
		t.Fatalf("want throttle count unchanged by transport failure, got %d", v)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&Options{MinInterval: time.Second}, map[string]*Options{
		"taapi": {MinInterval: 15 * time.Second},
		"bad":   {MinInterval: -time.Second},
	}, nil)

	a, b := r.Get("taapi"), r.Get("taapi")
	if a != b {
		t.Fatalf("want the same limiter for the same service")
	}
	if a.opts.MinInterval != 15*time.Second {
		t.Fatalf("want override interval, got %s", a.opts.MinInterval)
	}
	if c := r.Get("coingecko"); c.opts.MinInterval != time.Second {
		t.Fatalf("want default interval, got %s", c.opts.MinInterval)
	}
	if c := r.Get("bad"); c.opts.MinInterval != time.Second {
		t.Fatalf("want invalid options replaced with defaults, got %s", c.opts.MinInterval)
	}

	n := 0
	r.Range(func(string, *Limiter) bool { n++; return true })
	if n != 3 {
		t.Fatalf("want 3 limiters, got %d", n)
	}
}
