// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			done.Add(1)
		})
	}

	cg.Close()
	if v := done.Load(); v != 100 {
		t.Fatalf("want 100 goroutines complete, got %d", v)
	}
	if err := context.Cause(cg.Context()); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleep did not return early")
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
}

func TestForEach(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var sum, running, peak atomic.Int64
	ForEach(context.Background(), 4, items, func(ctx context.Context, v int) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		sum.Add(int64(v))
		running.Add(-1)
	})

	if v := sum.Load(); v != 49*50/2 {
		t.Fatalf("want sum %d, got %d", 49*50/2, v)
	}
	if v := peak.Load(); v > 4 {
		t.Fatalf("want at most 4 concurrent calls, got %d", v)
	}
}

func TestRetryTimeout(t *testing.T) {
	n := 0
	err := RetryTimeout(context.Background(), time.Millisecond, time.Second, func() error {
		if n++; n < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("want 3 attempts, got %d", n)
	}

	err = RetryTimeout(context.Background(), time.Millisecond, 20*time.Millisecond, func() error {
		return errors.New("never")
	})
	if err == nil {
		t.Fatalf("want error after timeout")
	}
}
