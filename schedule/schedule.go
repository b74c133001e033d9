// Copyright (c) 2025 BVK Chaitanya

// Package schedule runs scanners periodically on cron schedules.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/scanner"
	"github.com/robfig/cron/v3"
)

// ErrRunning is returned when a scanner run overlaps an earlier run of the
// same scanner.
var ErrRunning = errors.New("scanner is already running")

// Sink receives the alerts from every successful scheduled scan.
type Sink func(ctx context.Context, alerts []*alert.Alert)

type Options struct {
	// Location is the timezone for the cron schedules. Defaults to local time.
	Location *time.Location

	// Timeout bounds a single scan.
	Timeout time.Duration

	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.Location == nil {
		v.Location = time.Local
	}
	if v.Timeout == 0 {
		v.Timeout = 5 * time.Minute
	}
}

// Entry describes a scheduled scanner.
type Entry struct {
	Name    string
	Spec    string
	Paused  bool
	Running bool

	Next time.Time
	Prev time.Time

	LastRunAt  time.Time
	LastError  string
	LastAlerts int
}

type job struct {
	name    string
	spec    string
	scanner scanner.Scanner

	id cron.EntryID

	running atomic.Bool
}

type Scheduler struct {
	opts Options

	state scanner.State
	sink  Sink

	cron *cron.Cron

	cg ctxutil.CloseGroup

	mu   sync.Mutex
	jobs map[string]*job
}

func New(state scanner.State, sink Sink, opts *Options) (*Scheduler, error) {
	if state == nil {
		return nil, fmt.Errorf("scheduler requires a state store: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	s := &Scheduler{
		opts:  *opts,
		state: state,
		sink:  sink,
		jobs:  make(map[string]*job),
	}
	s.cron = cron.New(
		cron.WithLocation(opts.Location),
		cron.WithLogger(slogLogger{}),
		cron.WithChain(cron.Recover(slogLogger{})),
	)
	return s, nil
}

// Add schedules a scanner. Spec is a standard five field cron expression or
// a descriptor like "@hourly" or "@every 15m".
func (s *Scheduler) Add(sc scanner.Scanner, spec string) error {
	name := sc.Name()
	if len(name) == 0 || strings.Contains(name, "/") {
		return fmt.Errorf("invalid scanner name %q: %w", name, os.ErrInvalid)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("could not parse schedule %q for scanner %q: %w", spec, name, errors.Join(os.ErrInvalid, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("scanner %q is already scheduled: %w", name, os.ErrExist)
	}
	j := &job{name: name, spec: spec, scanner: sc}
	j.id = s.cron.Schedule(schedule, cron.FuncJob(func() { s.runScheduled(j) }))
	s.jobs[name] = j
	return nil
}

// Start starts the cron scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for the running scans to finish
// or the context to expire, in which case running scans are canceled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cg.Close()
		return nil
	case <-ctx.Done():
		s.cg.Close()
		return context.Cause(ctx)
	}
}

func (s *Scheduler) getJob(name string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("scanner %q is not scheduled: %w", name, os.ErrNotExist)
	}
	return j, nil
}

// Names returns the scheduled scanner names in sorted order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Pause stops the scheduled runs of a scanner. Paused state is persistent
// across restarts. Manual runs are still allowed.
func (s *Scheduler) Pause(ctx context.Context, name string) error {
	return s.setPaused(ctx, name, true)
}

func (s *Scheduler) Resume(ctx context.Context, name string) error {
	return s.setPaused(ctx, name, false)
}

func (s *Scheduler) setPaused(ctx context.Context, name string, paused bool) error {
	if _, err := s.getJob(name); err != nil {
		return err
	}
	update := func(state *gobs.ScannerState) error {
		state.Paused = paused
		return nil
	}
	if err := s.state.UpdateScannerState(ctx, name, update); err != nil {
		return fmt.Errorf("could not update paused state for scanner %q: %w", name, err)
	}
	slog.Info("updated scanner paused state", "scanner", name, "paused", paused)
	return nil
}

// RunNow runs a scanner immediately, even if it is paused. Alerts are returned
// to the caller and are not passed to the sink. Returns ErrRunning if the
// scanner is already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) ([]*alert.Alert, error) {
	j, err := s.getJob(name)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, j)
}

// List returns the scheduled scanners in name order.
func (s *Scheduler) List(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	for _, name := range s.Names() {
		j, err := s.getJob(name)
		if err != nil {
			continue
		}
		state, err := s.state.ScannerState(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("could not load state for scanner %q: %w", name, err)
		}
		ce := s.cron.Entry(j.id)
		entries = append(entries, &Entry{
			Name:       name,
			Spec:       j.spec,
			Paused:     state.Paused,
			Running:    j.running.Load(),
			Next:       ce.Next,
			Prev:       ce.Prev,
			LastRunAt:  state.LastRunAt,
			LastError:  state.LastError,
			LastAlerts: state.LastAlerts,
		})
	}
	return entries, nil
}

func (s *Scheduler) runScheduled(j *job) {
	ctx := s.cg.Context()
	state, err := s.state.ScannerState(ctx, j.name)
	if err != nil {
		slog.Error("could not load scanner state (skipped run)", "scanner", j.name, "err", err)
		return
	}
	if state.Paused {
		slog.Debug("skipping paused scanner", "scanner", j.name)
		return
	}
	alerts, err := s.run(ctx, j)
	if err != nil {
		if errors.Is(err, ErrRunning) {
			slog.Warn("skipping overlapping scanner run", "scanner", j.name)
			return
		}
		if ctx.Err() == nil {
			slog.Error("scanner run failed", "scanner", j.name, "err", err)
		}
		return
	}
	if s.sink != nil && len(alerts) > 0 {
		s.sink(ctx, alerts)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) ([]*alert.Alert, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("scanner %q: %w", j.name, ErrRunning)
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	alerts, err := j.scanner.Scan(ctx)
	s.opts.Metrics.Scan(j.name, time.Since(start), err)

	update := func(state *gobs.ScannerState) error {
		state.LastRunAt = start
		state.LastError = ""
		state.LastAlerts = len(alerts)
		if err != nil {
			state.LastError = err.Error()
		}
		return nil
	}
	if uerr := s.state.UpdateScannerState(context.WithoutCancel(ctx), j.name, update); uerr != nil {
		slog.Warn("could not save scanner state", "scanner", j.name, "err", uerr)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("scanner run completed", "scanner", j.name, "alerts", len(alerts), "took", time.Since(start))
	return alerts, nil
}

// slogLogger adapts the cron library logging to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
