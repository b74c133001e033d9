// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bvk/cryptoalerts/discord"
	"github.com/bvk/cryptoalerts/logdir"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/pushover"
	"github.com/bvk/cryptoalerts/slack"
	"github.com/bvk/cryptoalerts/telegram"
)

// openAlertLog opens the archive that receives a copy of every report. The
// archive is not a notifier.
func (s *Server) openAlertLog() error {
	if len(s.opts.AlertLogDir) == 0 {
		return nil
	}
	backend, err := logdir.New(s.opts.AlertLogDir, "alerts", &logdir.Options{MaxFiles: 10})
	if err != nil {
		return fmt.Errorf("could not create alert log: %w", err)
	}
	s.alertLog = backend
	s.archive = notify.NewWriter("alertlog", backend)
	return nil
}

// newNotifiers creates a notifier for every chat service with secrets.
func (s *Server) newNotifiers(ctx context.Context) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if v := s.secrets.Discord; v != nil {
		dopts := &discord.Options{
			Username: s.cfg.Username,
			Limiter:  s.limiters.Get("discord"),
			Metrics:  s.metrics,
		}
		client, err := discord.New(v.WebhookURL, dopts)
		if err != nil {
			return nil, fmt.Errorf("could not create discord notifier: %w", err)
		}
		notifiers = append(notifiers, client)
	}

	if v := s.secrets.Slack; v != nil {
		sopts := &slack.Options{
			Username: s.cfg.Username,
			APIURL:   s.opts.BaseURLs["slack"],
			Limiter:  s.limiters.Get("slack"),
			Metrics:  s.metrics,
		}
		client, err := slack.New(v, sopts)
		if err != nil {
			return nil, fmt.Errorf("could not create slack notifier: %w", err)
		}
		notifiers = append(notifiers, client)
	}

	if v := s.secrets.Pushover; v != nil {
		popts := &pushover.Options{
			APIURL:  s.opts.BaseURLs["pushover"],
			Title:   s.cfg.Username,
			Limiter: s.limiters.Get("pushover"),
			Metrics: s.metrics,
		}
		client, err := pushover.New(v, popts)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover notifier: %w", err)
		}
		notifiers = append(notifiers, client)
	}

	if v := s.secrets.Telegram; v != nil && !s.opts.NoTelegram {
		topts := &telegram.Options{
			ServerURL: s.opts.BaseURLs["telegram"],
		}
		client, err := telegram.New(ctx, s.db, v, topts)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram notifier: %w", err)
		}
		s.telegramClient = client
		notifiers = append(notifiers, client)
	}

	notifiers = append(notifiers, s.opts.Notifiers...)
	for _, n := range notifiers {
		slog.Info("using notifier", "name", n.Name(), "max-message-len", n.MaxMessageLen())
	}
	return notifiers, nil
}
