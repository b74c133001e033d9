// Copyright (c) 2025 BVK Chaitanya

package ratelimit

import (
	"log/slog"

	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/syncmap"
)

// Registry holds one shared limiter per named service, so that all clients
// talking to the same service are throttled together.
type Registry struct {
	defaults  Options
	overrides map[string]Options
	metrics   *metrics.Metrics

	limiters syncmap.Map[string, *Limiter]
}

// NewRegistry creates a limiter registry. Limiters for services in the
// overrides map use the per-service options; others use the defaults.
func NewRegistry(defaults *Options, overrides map[string]*Options, m *metrics.Metrics) *Registry {
	r := &Registry{
		overrides: make(map[string]Options),
		metrics:   m,
	}
	if defaults != nil {
		r.defaults = *defaults
	}
	for name, opts := range overrides {
		if opts != nil {
			r.overrides[name] = *opts
		}
	}
	return r
}

// Get returns the limiter for the named service, creating it on first use.
// Invalid options are logged and replaced with the defaults.
func (r *Registry) Get(name string) *Limiter {
	if l, ok := r.limiters.Load(name); ok {
		return l
	}

	opts, ok := r.overrides[name]
	if !ok {
		opts = r.defaults
	}
	opts.Metrics = r.metrics
	l, err := New(name, &opts)
	if err != nil {
		slog.Error("could not create rate limiter with configured options (using defaults)", "service", name, "err", err)
		l, _ = New(name, &Options{Metrics: r.metrics})
	}
	actual, _ := r.limiters.LoadOrStore(name, l)
	return actual
}

// Range calls f for every limiter created so far.
func (r *Registry) Range(f func(name string, l *Limiter) bool) {
	r.limiters.Range(f)
}
