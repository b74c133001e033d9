// Copyright (c) 2025 BVK Chaitanya

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/store"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chat struct {
	mu       sync.Mutex
	fail     bool
	messages []string
	sent     chan struct{}
}

func (c *chat) Name() string       { return "chat" }
func (c *chat) MaxMessageLen() int { return 2000 }

func (c *chat) SendMessage(ctx context.Context, at time.Time, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("webhook unavailable")
	}
	c.messages = append(c.messages, text)
	if c.sent != nil {
		c.sent <- struct{}{}
	}
	return nil
}

func newAlert(kind, symbol string, level alert.Level) *alert.Alert {
	return &alert.Alert{Scanner: "tickers", Kind: kind, Symbol: symbol, Level: level, Title: symbol + " " + kind}
}

func TestDeliverCooldown(t *testing.T) {
	ctx := context.Background()
	st := store.New(kvmemdb.New())
	c := &chat{}

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	d, err := New(st, notify.NewMulti(m, c), &Options{
		Cooldown: time.Hour,
		Now:      func() time.Time { return now },
		Metrics:  m,
	})
	require.NoError(t, err)
	defer d.Close()

	alerts := []*alert.Alert{
		newAlert("pump", "BTCUSDT", alert.Warning),
		newAlert("dump", "ETHUSDT", alert.Critical),
		newAlert("pump", "BTCUSDT", alert.Warning), // duplicate in batch
	}
	res, err := d.Deliver(ctx, alerts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"chat"}, res.Notifiers)
	require.Len(t, c.messages, 1)
	// Critical alerts come first in the report.
	assert.Less(t, strings.Index(c.messages[0], "ETHUSDT dump"), strings.Index(c.messages[0], "BTCUSDT pump"))

	now = now.Add(30 * time.Minute)
	res, err = d.Deliver(ctx, []*alert.Alert{newAlert("pump", "BTCUSDT", alert.Warning), newAlert("pump", "SOLUSDT", alert.Warning)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Suppressed)
	require.Len(t, c.messages, 2)
	assert.Contains(t, c.messages[1], "SOLUSDT pump")

	now = now.Add(time.Hour)
	res, err = d.Deliver(ctx, []*alert.Alert{newAlert("pump", "BTCUSDT", alert.Warning)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	history, err := st.History(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestDeliverFailure(t *testing.T) {
	ctx := context.Background()
	st := store.New(kvmemdb.New())
	c := &chat{fail: true}

	d, err := New(st, notify.NewMulti(nil, c), nil)
	require.NoError(t, err)
	defer d.Close()

	a := newAlert("pump", "BTCUSDT", alert.Warning)
	res, err := d.Deliver(ctx, []*alert.Alert{a})
	assert.Error(t, err)
	assert.Equal(t, 1, res.Failed)

	// Failed alerts are not recorded and are retried on the next delivery.
	c.fail = false
	res, err = d.Deliver(ctx, []*alert.Alert{a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestDeliverArchiveIsNotDelivery(t *testing.T) {
	ctx := context.Background()
	st := store.New(kvmemdb.New())
	c := &chat{fail: true}

	var archive bytes.Buffer
	d, err := New(st, notify.NewMulti(nil, c), &Options{Archive: &archive})
	require.NoError(t, err)
	defer d.Close()

	a := newAlert("pump", "BTCUSDT", alert.Warning)
	res, err := d.Deliver(ctx, []*alert.Alert{a})
	assert.Error(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Sent)
	assert.Empty(t, res.Notifiers)
	assert.Contains(t, archive.String(), "BTCUSDT pump")

	history, err := st.History(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	// Chat recovers; the alert must not be held back by the cooldown.
	c.fail = false
	res, err = d.Deliver(ctx, []*alert.Alert{a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Zero(t, res.Suppressed)
	assert.Equal(t, []string{"chat"}, res.Notifiers)
	require.Len(t, c.messages, 1)
	assert.Contains(t, c.messages[0], "BTCUSDT pump")
}

func TestDeliverMinLevel(t *testing.T) {
	c := &chat{}
	d, err := New(store.New(kvmemdb.New()), notify.NewMulti(nil, c), &Options{MinLevel: alert.Warning})
	require.NoError(t, err)
	defer d.Close()

	res, err := d.Deliver(context.Background(), []*alert.Alert{
		newAlert("news", "BTC", alert.Info),
		{Scanner: "tickers"}, // invalid
	})
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Empty(t, c.messages)
}

func TestPublish(t *testing.T) {
	c := &chat{sent: make(chan struct{}, 1)}
	d, err := New(store.New(kvmemdb.New()), notify.NewMulti(nil, c), nil)
	require.NoError(t, err)
	defer d.Close()

	d.Publish([]*alert.Alert{newAlert("pump", "BTCUSDT", alert.Warning)})
	select {
	case <-c.sent:
	case <-time.After(5 * time.Second):
		t.Fatal("published alert was not delivered")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Contains(t, c.messages[0], "BTCUSDT pump")
}
