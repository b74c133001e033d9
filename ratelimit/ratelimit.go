// Copyright (c) 2025 BVK Chaitanya

// Package ratelimit implements the shared outbound rate limiter used by all
// API clients.
//
// A Limiter spaces acquisitions by a minimum interval and adds an escalating
// penalty sleep after consecutive HTTP 429 responses. Callers acquire a Slot
// before every request and release it with the response status:
//
//	slot, err := limiter.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	resp, err := http.DefaultClient.Do(req)
//	...
//	slot.Release(resp.StatusCode, retryAfter)
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

type Options struct {
	// MinInterval is the minimum duration between two acquisitions.
	MinInterval time.Duration

	// Burst is the number of acquisitions allowed without waiting.
	Burst int

	// PenaltyMin is the first penalty sleep after a 429 response. Penalty is
	// multiplied by PenaltyFactor for every consecutive 429 response till
	// PenaltyMax.
	PenaltyMin    time.Duration
	PenaltyMax    time.Duration
	PenaltyFactor float64

	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.MinInterval == 0 {
		v.MinInterval = time.Second
	}
	if v.Burst == 0 {
		v.Burst = 1
	}
	if v.PenaltyMin == 0 {
		v.PenaltyMin = 5 * time.Second
	}
	if v.PenaltyMax == 0 {
		v.PenaltyMax = 2 * time.Minute
	}
	if v.PenaltyFactor == 0 {
		v.PenaltyFactor = 2
	}
}

func (v *Options) Check() error {
	if v.MinInterval < 0 {
		return fmt.Errorf("min interval cannot be negative: %w", os.ErrInvalid)
	}
	if v.Burst < 1 {
		return fmt.Errorf("burst must be positive: %w", os.ErrInvalid)
	}
	if v.PenaltyMin <= 0 || v.PenaltyMax < v.PenaltyMin {
		return fmt.Errorf("penalty range [%s, %s] is invalid: %w", v.PenaltyMin, v.PenaltyMax, os.ErrInvalid)
	}
	if v.PenaltyFactor < 1 {
		return fmt.Errorf("penalty factor must be at least one: %w", os.ErrInvalid)
	}
	return nil
}

type Limiter struct {
	name string

	opts Options

	limiter *rate.Limiter

	mu sync.Mutex

	// backoff computes the escalating penalty. It is not thread-safe, so it is
	// guarded by the mutex.
	backoff backoff.Backoff

	// throttled is the number of consecutive 429 responses.
	throttled int

	// penaltyUntil is the time before which no slots are handed out.
	penaltyUntil time.Time
}

// New creates a limiter for the named service.
func New(name string, opts *Options) (*Limiter, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	l := &Limiter{
		name:    name,
		opts:    *opts,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), opts.Burst),
		backoff: backoff.Backoff{
			Min:    opts.PenaltyMin,
			Max:    opts.PenaltyMax,
			Factor: opts.PenaltyFactor,
		},
	}
	return l, nil
}

func (l *Limiter) Name() string {
	return l.name
}

// Throttled returns the number of consecutive 429 responses reported by the
// released slots.
func (l *Limiter) Throttled() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.throttled
}

// PenaltyUntil returns the end time of the current 429 penalty, which is zero
// when the limiter is not throttled.
func (l *Limiter) PenaltyUntil() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.penaltyUntil
}

// Acquire blocks till the caller is allowed to send one request. Returns the
// context cause if the input context is canceled before that.
func (l *Limiter) Acquire(ctx context.Context) (*Slot, error) {
	for {
		d := time.Until(l.PenaltyUntil())
		if d <= 0 {
			break
		}
		slog.Debug("waiting for rate limit penalty", "service", l.name, "wait", d)
		if err := ctxutil.Sleep(ctx, d); err != nil {
			return nil, err
		}
		// Penalty may have been extended by other slots in the mean time.
	}

	if err := l.limiter.Wait(ctx); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("could not wait for %s rate limiter: %w", l.name, err)
	}
	return &Slot{limiter: l}, nil
}

func (l *Limiter) report(status int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if status == http.StatusTooManyRequests || status == http.StatusTeapot {
		l.throttled++
		penalty := l.backoff.Duration()
		if retryAfter > penalty {
			penalty = retryAfter
		}
		if until := time.Now().Add(penalty); until.After(l.penaltyUntil) {
			l.penaltyUntil = until
		}
		l.opts.Metrics.Throttled(l.name)
		slog.Warn("rate limited by service", "service", l.name, "status", status, "consecutive", l.throttled, "penalty", penalty)
		return
	}

	// Transport errors are reported with zero status and do not change the
	// throttling state.
	if status > 0 {
		l.throttled = 0
		l.backoff.Reset()
	}
}

// Slot represents permission to send one request. It must be released with
// the response status.
type Slot struct {
	limiter  *Limiter
	released atomic.Bool
}

// Release reports the response status and optional Retry-After duration for
// the request sent under this slot. A 429 (or 418) status escalates the
// limiter penalty; any other response resets it. Zero status indicates that
// request failed without a response. Releasing a slot more than once is a
// no-op.
func (s *Slot) Release(status int, retryAfter time.Duration) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}
	s.limiter.report(status, retryAfter)
}
