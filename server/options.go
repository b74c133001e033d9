// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"time"

	"github.com/bvk/cryptoalerts/notify"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	// NoTelegram when true, telegram bot is not started even if the telegram
	// secrets are configured.
	NoTelegram bool

	// NoPrune when true, old delivery history is never removed.
	NoPrune bool

	// PruneInterval is the time between two history cleanups.
	PruneInterval time.Duration

	// BaseURLs overrides the api endpoints by service name, eg: "coingecko".
	BaseURLs map[string]string

	// AlertLogDir if non-empty, every report and message is also appended to
	// size limited files in this directory. The alert log is an archive and
	// does not count as a notifier.
	AlertLogDir string

	// Notifiers are used in addition to the notifiers from the secrets.
	Notifiers []notify.Notifier

	// Registry holds the prometheus metrics. A new registry is created when
	// nil.
	Registry *prometheus.Registry

	// Location is the timezone for the scanner schedules.
	Location *time.Location
}

func (v *Options) setDefaults() {
	if v.PruneInterval == 0 {
		v.PruneInterval = time.Hour
	}
	if v.Registry == nil {
		v.Registry = prometheus.NewRegistry()
	}
	if v.Location == nil {
		v.Location = time.Local
	}
}

func (v *Options) Check() error {
	if v.PruneInterval < 0 {
		return fmt.Errorf("prune interval cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
