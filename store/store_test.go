// Copyright (c) 2025 BVK Chaitanya

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/timerange"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentWithin(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	a := &alert.Alert{Scanner: "tickers", Kind: "pump", Symbol: "BTCUSDT", Title: "pump", Level: alert.Warning}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	sent, err := s.SentWithin(ctx, a.Fingerprint(), time.Hour, now)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, s.RecordSent(ctx, a, now, []string{"discord"}))

	sent, err = s.SentWithin(ctx, a.Fingerprint(), time.Hour, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = s.SentWithin(ctx, a.Fingerprint(), time.Hour, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, s.RecordSent(ctx, a, now.Add(2*time.Hour), []string{"discord"}))
	last, err := s.LastSent(ctx, a.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, "warning", last.Level)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		scanner := "news"
		if i%2 == 0 {
			scanner = "social"
		}
		a := &alert.Alert{Scanner: scanner, Kind: "k", Symbol: "ETH", Title: "t", Dedup: string(rune('a' + i))}
		require.NoError(t, s.RecordSent(ctx, a, start.Add(time.Duration(i)*time.Minute), nil))
	}

	all, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.True(t, all[0].SentAt.After(all[4].SentAt), "newest first")

	limited, err := s.History(ctx, "social", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, start.Add(4*time.Minute), limited[0].SentAt)

	period := &timerange.Range{Begin: start.Add(time.Minute), End: start.Add(3 * time.Minute)}
	window, err := s.HistoryIn(ctx, "", period, 0)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, start.Add(2*time.Minute), window[0].SentAt)
	assert.Equal(t, start.Add(time.Minute), window[1].SentAt)

	n, err := s.Prune(ctx, start.Add(150*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rest, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	old := &alert.Alert{Scanner: "social", Kind: "k", Symbol: "ETH", Title: "t", Dedup: "a"}
	_, err = s.LastSent(ctx, old.Fingerprint())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScannerState(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	state, err := s.ScannerState(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, "news", state.Name)
	assert.False(t, state.Paused)

	err = s.UpdateScannerState(ctx, "news", func(st *gobs.ScannerState) error {
		st.Paused = true
		st.Cursor = "2025-03-01T00:00:00Z"
		st.Values["BTC"] = "1.5"
		return nil
	})
	require.NoError(t, err)

	state, err = s.ScannerState(ctx, "news")
	require.NoError(t, err)
	assert.True(t, state.Paused)
	assert.Equal(t, "2025-03-01T00:00:00Z", state.Cursor)
	assert.Equal(t, "1.5", state.Values["BTC"])

	failure := errors.New("abort")
	err = s.UpdateScannerState(ctx, "news", func(st *gobs.ScannerState) error {
		st.Paused = false
		return failure
	})
	assert.ErrorIs(t, err, failure)
	state, err = s.ScannerState(ctx, "news")
	require.NoError(t, err)
	assert.True(t, state.Paused, "failed update must not be saved")

	assert.ErrorIs(t, s.UpdateScannerState(ctx, "a/b", func(*gobs.ScannerState) error { return nil }), os.ErrInvalid)
}
