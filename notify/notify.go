// Copyright (c) 2025 BVK Chaitanya

// Package notify defines the interface implemented by chat and push
// notification clients and helpers to deliver long messages through them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/metrics"
)

type Notifier interface {
	// Name returns a short, unique name for the notifier, eg: "discord".
	Name() string

	// MaxMessageLen returns the maximum number of characters accepted in a
	// single message. Zero means unlimited.
	MaxMessageLen() int

	// SendMessage posts a single message that fits in MaxMessageLen.
	SendMessage(ctx context.Context, at time.Time, text string) error
}

// Send splits the text into chunks that fit the notifier's message size limit
// and posts them in order. Sending stops at the first failure.
func Send(ctx context.Context, n Notifier, at time.Time, text string) error {
	chunks := alert.Split(text, n.MaxMessageLen())
	for i, chunk := range chunks {
		if err := n.SendMessage(ctx, at, chunk); err != nil {
			return fmt.Errorf("could not send part %d of %d to %s: %w", i+1, len(chunks), n.Name(), err)
		}
	}
	return nil
}

// Multi fans out messages to a collection of notifiers.
type Multi struct {
	notifiers []Notifier
	metrics   *metrics.Metrics
}

func NewMulti(m *metrics.Metrics, notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		metrics:   m,
	}
}

func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Broadcast sends the text to every notifier. Returns names of the notifiers
// that accepted the full message and a joined error for the ones that
// failed.
func (m *Multi) Broadcast(ctx context.Context, at time.Time, text string) ([]string, error) {
	var sent []string
	var errs []error
	for _, n := range m.notifiers {
		err := Send(ctx, n, at, text)
		m.metrics.Notification(n.Name(), err)
		if err != nil {
			slog.Error("could not deliver message to notifier", "notifier", n.Name(), "err", err)
			errs = append(errs, err)
			continue
		}
		sent = append(sent, n.Name())
	}
	return sent, errors.Join(errs...)
}
