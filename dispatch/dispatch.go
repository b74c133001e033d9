// Copyright (c) 2025 BVK Chaitanya

// Package dispatch delivers scanner alerts to the notifiers. Alerts that were
// already delivered within the cooldown period are suppressed and every
// batch of alerts is posted as a single report.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/visvasity/topic"
)

// Store keeps the delivery history used for the cooldown.
type Store interface {
	SentWithin(ctx context.Context, fingerprint string, cooldown time.Duration, now time.Time) (bool, error)
	RecordSent(ctx context.Context, a *alert.Alert, at time.Time, notifiers []string) error
}

// Broadcaster is implemented by notify.Multi.
type Broadcaster interface {
	Broadcast(ctx context.Context, at time.Time, text string) ([]string, error)
}

type Options struct {
	// Cooldown is the minimum time between two deliveries of the same alert
	// fingerprint.
	Cooldown time.Duration

	// MinLevel drops alerts below this level.
	MinLevel alert.Level

	Now func() time.Time

	// Archive receives a copy of every report. It is not a notifier, so a
	// report written only to the archive is not considered delivered.
	Archive io.Writer

	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.Cooldown == 0 {
		v.Cooldown = time.Hour
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *Options) Check() error {
	if v.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Result summarizes one delivery.
type Result struct {
	Sent       int
	Suppressed int
	Failed     int

	// Notifiers holds names of the notifiers that accepted the report.
	Notifiers []string
}

type Dispatcher struct {
	opts Options

	store Store
	out   Broadcaster

	archive *notify.Writer

	cg ctxutil.CloseGroup

	bus      *topic.Topic[[]*alert.Alert]
	receiver *topic.Receiver[[]*alert.Alert]

	// mu serializes deliveries so that cooldown checks see earlier records.
	mu sync.Mutex
}

// New creates a dispatcher and starts the background delivery loop for
// published alerts.
func New(store Store, out Broadcaster, opts *Options) (*Dispatcher, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	bus := topic.New[[]*alert.Alert]()
	receiver, err := topic.Subscribe(bus, 0, false /* includeRecent */)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("could not subscribe to the alerts topic: %w", err)
	}

	d := &Dispatcher{
		opts:     *opts,
		store:    store,
		out:      out,
		bus:      bus,
		receiver: receiver,
	}
	if opts.Archive != nil {
		d.archive = notify.NewWriter("archive", opts.Archive)
	}
	d.cg.Go(d.goDeliver)
	return d, nil
}

// Close stops the delivery loop. Alerts published but not yet delivered are
// dropped.
func (d *Dispatcher) Close() {
	d.cg.Close()
	d.bus.Close()
}

// Publish queues alerts for asynchronous delivery.
func (d *Dispatcher) Publish(alerts []*alert.Alert) {
	if len(alerts) > 0 {
		d.bus.Send(alerts)
	}
}

func (d *Dispatcher) goDeliver(ctx context.Context) {
	stopf := context.AfterFunc(ctx, d.receiver.Close)
	defer stopf()

	for ctx.Err() == nil {
		alerts, err := d.receiver.Receive()
		if err != nil {
			continue
		}
		if _, err := d.Deliver(ctx, alerts); err != nil {
			slog.Error("could not deliver alerts", "alerts", len(alerts), "err", err)
		}
	}
}

// Deliver sends the alerts synchronously. Alerts within the cooldown are
// suppressed and the rest are rendered into one report which is sent to all
// notifiers. Returns an error only if no notifier accepted the report.
func (d *Dispatcher) Deliver(ctx context.Context, alerts []*alert.Alert) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.opts.Now()
	result := new(Result)

	var fresh []*alert.Alert
	seen := make(map[string]struct{})
	for _, a := range alerts {
		if err := a.Check(); err != nil {
			slog.Warn("dropping invalid alert", "scanner", a.Scanner, "kind", a.Kind, "err", err)
			continue
		}
		if a.Level < d.opts.MinLevel {
			continue
		}
		fp := a.Fingerprint()
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}

		if d.opts.Cooldown > 0 {
			sent, err := d.store.SentWithin(ctx, fp, d.opts.Cooldown, now)
			if err != nil {
				return nil, fmt.Errorf("could not check alert history: %w", err)
			}
			if sent {
				result.Suppressed++
				d.opts.Metrics.Alert(a.Scanner, "suppressed")
				continue
			}
		}
		if a.At.IsZero() {
			a.At = now
		}
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return result, nil
	}

	text, err := d.render(now, fresh)
	if err != nil {
		return nil, err
	}

	names, err := d.out.Broadcast(ctx, now, text)
	if d.archive != nil {
		if err := d.archive.SendMessage(ctx, now, text); err != nil {
			slog.Warn("could not archive the report (ignored)", "err", err)
		}
	}
	if len(names) == 0 {
		result.Failed = len(fresh)
		for _, a := range fresh {
			d.opts.Metrics.Alert(a.Scanner, "failed")
		}
		if err == nil {
			err = fmt.Errorf("no notifiers are configured: %w", os.ErrNotExist)
		}
		return result, fmt.Errorf("could not deliver %d alerts: %w", len(fresh), err)
	}
	if err != nil {
		slog.Warn("alerts were delivered to some notifiers only", "notifiers", names, "err", err)
	}

	result.Notifiers = names
	for _, a := range fresh {
		if err := d.store.RecordSent(ctx, a, now, names); err != nil {
			slog.Error("could not record sent alert (may be delivered again)", "scanner", a.Scanner, "title", a.Title, "err", err)
		}
		result.Sent++
		d.opts.Metrics.Alert(a.Scanner, "sent")
	}
	return result, nil
}

func (d *Dispatcher) render(now time.Time, alerts []*alert.Alert) (string, error) {
	if len(alerts) == 1 {
		return alert.Render(alerts[0])
	}
	return alert.RenderReport(alert.ReportHeader(now, alerts), alerts)
}
