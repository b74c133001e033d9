// Copyright (c) 2025 BVK Chaitanya

// Package scanner implements the poll-and-alert jobs. Each scanner queries
// one upstream service for the watchlist and turns the interesting
// observations into normalized alerts.
package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/gobs"
)

type Scanner interface {
	Name() string

	// Scan polls the upstream service once and returns alerts for the
	// conditions observed. Failures for individual items are logged and
	// skipped; an error is returned only when nothing could be scanned.
	Scan(ctx context.Context) ([]*alert.Alert, error)
}

// State persists scanner specific values across runs.
type State interface {
	ScannerState(ctx context.Context, name string) (*gobs.ScannerState, error)
	UpdateScannerState(ctx context.Context, name string, fn func(*gobs.ScannerState) error) error
}

// DefaultConcurrency is the number of upstream requests a scanner keeps in
// flight. Requests are further paced by the service's rate limiter.
const DefaultConcurrency = 4

// scanEach runs f for every item concurrently and merges the alerts. Failed
// items are logged and skipped. Returns an error only when every item failed.
func scanEach[T any](ctx context.Context, scanner string, concurrency int, items []T, f func(context.Context, T) ([]*alert.Alert, error)) ([]*alert.Alert, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		mu     sync.Mutex
		alerts []*alert.Alert
		errs   []error
	)
	ctxutil.ForEach(ctx, concurrency, items, func(ctx context.Context, item T) {
		as, err := f(ctx, item)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Warn("could not scan item (skipped)", "scanner", scanner, "item", item, "err", err)
			errs = append(errs, err)
			return
		}
		alerts = append(alerts, as...)
	})
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	if len(errs) == len(items) {
		return nil, fmt.Errorf("all %d items failed in scanner %q: %w", len(items), scanner, errors.Join(errs...))
	}
	sortAlerts(alerts)
	return alerts, nil
}

func sortAlerts(alerts []*alert.Alert) {
	slices.SortStableFunc(alerts, func(a, b *alert.Alert) int {
		if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
}

// newAlert fills in the common alert fields.
func newAlert(scanner, kind, symbol string, level alert.Level, title string, at time.Time) *alert.Alert {
	return &alert.Alert{
		Scanner: scanner,
		Kind:    kind,
		Symbol:  symbol,
		Level:   level,
		Title:   title,
		At:      at,
	}
}

// Func adapts a function into a Scanner.
type Func struct {
	name string
	scan func(context.Context) ([]*alert.Alert, error)
}

func NewFunc(name string, scan func(context.Context) ([]*alert.Alert, error)) *Func {
	return &Func{name: name, scan: scan}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Scan(ctx context.Context) ([]*alert.Alert, error) {
	return f.scan(ctx)
}
