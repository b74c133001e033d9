// Copyright (c) 2025 BVK Chaitanya

// Package server assembles the cryptoalerts daemon: api clients, scanners,
// the cron scheduler, the alert dispatcher and the notifiers, and exposes
// the control api handlers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/dispatch"
	"github.com/bvk/cryptoalerts/httputil"
	"github.com/bvk/cryptoalerts/logdir"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/bvk/cryptoalerts/schedule"
	"github.com/bvk/cryptoalerts/store"
	"github.com/bvk/cryptoalerts/telegram"
	"github.com/bvkgo/kv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cg ctxutil.CloseGroup

	closeOnce sync.Once

	opts Options

	cfg     *config.Config
	secrets *config.Secrets

	startTime time.Time

	db    kv.Database
	store *store.Store

	metrics  *metrics.Metrics
	limiters *ratelimit.Registry

	telegramClient *telegram.Client
	alertLog       *logdir.Backend
	archive        *notify.Writer
	notifiers      *notify.Multi

	dispatcher *dispatch.Dispatcher
	scheduler  *schedule.Scheduler

	handlerMap map[string]http.Handler
}

// New creates the daemon. Scanners are scheduled but are not run until the
// Start method is called.
func New(ctx context.Context, secrets *config.Secrets, cfg *config.Config, db kv.Database, opts *Options) (_ *Server, status error) {
	if secrets == nil {
		secrets = new(config.Secrets)
	}
	if err := secrets.Check(); err != nil {
		return nil, fmt.Errorf("invalid secrets: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	m, err := metrics.New(opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("could not register metrics: %w", err)
	}

	s := &Server{
		opts:      *opts,
		cfg:       cfg,
		secrets:   secrets,
		startTime: time.Now(),
		db:        db,
		store:     store.New(db),
		metrics:   m,
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	defaults, overrides := cfg.LimiterOptions()
	s.limiters = ratelimit.NewRegistry(defaults, overrides, m)

	if err := s.openAlertLog(); err != nil {
		return nil, err
	}

	notifiers, err := s.newNotifiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(notifiers) == 0 {
		slog.Warn("no notifiers are configured; alerts will only be recorded in the logs")
	}
	s.notifiers = notify.NewMulti(m, notifiers...)

	dopts := &dispatch.Options{
		Cooldown: cfg.Cooldown.Duration(),
		MinLevel: cfg.Level(),
		Metrics:  m,
	}
	if s.alertLog != nil {
		dopts.Archive = s.alertLog
	}
	dispatcher, err := dispatch.New(s.store, s.notifiers, dopts)
	if err != nil {
		return nil, fmt.Errorf("could not create alert dispatcher: %w", err)
	}
	s.dispatcher = dispatcher

	sopts := &schedule.Options{
		Location: opts.Location,
		Metrics:  m,
	}
	sink := func(_ context.Context, alerts []*alert.Alert) {
		s.dispatcher.Publish(alerts)
	}
	scheduler, err := schedule.New(s.store, sink, sopts)
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}
	s.scheduler = scheduler

	if err := s.addScanners(); err != nil {
		return nil, err
	}

	if s.telegramClient != nil {
		if err := s.addTelegramCommands(ctx); err != nil {
			return nil, err
		}
	}

	s.handlerMap = map[string]http.Handler{
		api.ScannersListPath:   httputil.JSONHandler(s.doScannersList),
		api.ScannersRunPath:    httputil.JSONHandler(s.doScannersRun),
		api.ScannersPausePath:  httputil.JSONHandler(s.doScannersPause),
		api.ScannersResumePath: httputil.JSONHandler(s.doScannersResume),
		api.NotifyPath:         httputil.JSONHandler(s.doNotify),
		api.HistoryPath:        httputil.JSONHandler(s.doHistory),
		api.StatusPath:         httputil.JSONHandler(s.doStatus),
		"/metrics":             promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}),
	}
	return s, nil
}

// Close releases all resources. Scheduled scans must be stopped with the
// Stop method before.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cg.Close()
		if s.dispatcher != nil {
			s.dispatcher.Close()
		}
		if s.telegramClient != nil {
			s.telegramClient.Close()
		}
		if s.alertLog != nil {
			s.alertLog.Close()
		}
	})
	return nil
}

// Start starts the scheduled scans and the background history cleanup.
func (s *Server) Start(ctx context.Context) error {
	if s.scheduler == nil {
		return os.ErrInvalid
	}
	s.scheduler.Start()
	if !s.opts.NoPrune {
		s.cg.Go(s.goPrune)
	}
	slog.InfoContext(ctx, "started scanners", "scanners", s.scheduler.Names())
	return nil
}

// Stop stops the scheduled scans and waits for the running scans to finish.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.scheduler.Stop(ctx); err != nil {
		return fmt.Errorf("could not stop the scheduler cleanly: %w", err)
	}
	return nil
}

// HandlerMap returns the control api handlers by path.
func (s *Server) HandlerMap() map[string]http.Handler {
	return s.handlerMap
}

// Scanners returns names of the configured scanners.
func (s *Server) Scanners() []string {
	return s.scheduler.Names()
}

// SendMessage sends a free-form message through all notifiers. The message is
// also written to the alert log when it is enabled.
func (s *Server) SendMessage(ctx context.Context, at time.Time, text string) ([]string, error) {
	names, err := s.notifiers.Broadcast(ctx, at, text)
	if s.archive != nil {
		if err := s.archive.SendMessage(ctx, at, text); err != nil {
			slog.Warn("could not write message to the alert log (ignored)", "err", err)
		}
	}
	return names, err
}

func (s *Server) goPrune(ctx context.Context) {
	for ctx.Err() == nil {
		before := time.Now().Add(-s.cfg.HistoryRetention.Duration())
		n, err := s.store.Prune(ctx, before)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("could not prune alert history (will retry)", "err", err)
			}
		} else if n > 0 {
			slog.Info("pruned old alert history", "records", n, "before", before)
		}
		ctxutil.Sleep(ctx, s.opts.PruneInterval)
	}
}
