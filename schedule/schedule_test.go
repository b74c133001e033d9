// Copyright (c) 2025 BVK Chaitanya

package schedule

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/scanner"
	"github.com/bvk/cryptoalerts/store"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	alerts []*alert.Alert
	ch     chan struct{}
}

func (c *collector) sink(ctx context.Context, alerts []*alert.Alert) {
	c.mu.Lock()
	c.alerts = append(c.alerts, alerts...)
	c.mu.Unlock()
	if c.ch != nil {
		select {
		case c.ch <- struct{}{}:
		default:
		}
	}
}

func pingScanner(name string) scanner.Scanner {
	return scanner.NewFunc(name, func(ctx context.Context) ([]*alert.Alert, error) {
		return []*alert.Alert{{Scanner: name, Kind: "ping", Title: "ping"}}, nil
	})
}

func TestRunNowAndState(t *testing.T) {
	ctx := context.Background()
	st := store.New(kvmemdb.New())
	c := &collector{}

	s, err := New(st, c.sink, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(pingScanner("ping"), "@every 1h"))
	require.NoError(t, s.Add(scanner.NewFunc("broken", func(ctx context.Context) ([]*alert.Alert, error) {
		return nil, errors.New("upstream is down")
	}), "*/5 * * * *"))

	assert.ErrorIs(t, s.Add(pingScanner("ping"), "@hourly"), os.ErrExist)
	assert.ErrorIs(t, s.Add(pingScanner("bad"), "every hour"), os.ErrInvalid)

	alerts, err := s.RunNow(ctx, "ping")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	// Manual runs leave the delivery to the caller.
	assert.Empty(t, c.alerts)

	_, err = s.RunNow(ctx, "broken")
	assert.Error(t, err)

	_, err = s.RunNow(ctx, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "broken", entries[0].Name)
	assert.Equal(t, "upstream is down", entries[0].LastError)
	assert.Equal(t, "ping", entries[1].Name)
	assert.Equal(t, 1, entries[1].LastAlerts)
	assert.False(t, entries[1].LastRunAt.IsZero())
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	st := store.New(kvmemdb.New())

	s, err := New(st, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(pingScanner("ping"), "@every 1h"))

	require.NoError(t, s.Pause(ctx, "ping"))
	state, err := st.ScannerState(ctx, "ping")
	require.NoError(t, err)
	assert.True(t, state.Paused)

	// Paused state survives a new scheduler over the same store.
	s2, err := New(st, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s2.Add(pingScanner("ping"), "@every 1h"))
	entries, err := s2.List(ctx)
	require.NoError(t, err)
	assert.True(t, entries[0].Paused)

	require.NoError(t, s2.Resume(ctx, "ping"))
	state, err = st.ScannerState(ctx, "ping")
	require.NoError(t, err)
	assert.False(t, state.Paused)

	assert.ErrorIs(t, s2.Pause(ctx, "missing"), os.ErrNotExist)
}

func TestOverlappingRuns(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	slow := scanner.NewFunc("slow", func(ctx context.Context) ([]*alert.Alert, error) {
		close(started)
		<-release
		return nil, nil
	})

	s, err := New(store.New(kvmemdb.New()), nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(slow, "@every 1h"))

	errCh := make(chan error, 1)
	go func() {
		_, err := s.RunNow(ctx, "slow")
		errCh <- err
	}()
	<-started

	_, err = s.RunNow(ctx, "slow")
	assert.ErrorIs(t, err, ErrRunning)

	close(release)
	require.NoError(t, <-errCh)
}

func TestScheduledRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow test")
	}
	ctx := context.Background()
	st := store.New(kvmemdb.New())
	c := &collector{ch: make(chan struct{}, 1)}

	s, err := New(st, c.sink, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(pingScanner("ping"), "@every 1s"))
	s.Start()
	defer s.Stop(ctx)

	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled scanner did not run")
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.False(t, entries[0].Next.IsZero())
}
