// Copyright (c) 2025 BVK Chaitanya

// Package store keeps the daemon state in a key-value database: delivered
// alerts for duplicate suppression, the delivery history and the per-scanner
// state.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/kvutil"
	"github.com/bvk/cryptoalerts/timerange"
	"github.com/bvkgo/kv"
)

const (
	SentKeyspace    = "/alerts/sent"
	HistoryKeyspace = "/alerts/history"
	ScannerKeyspace = "/scanners"
)

type Store struct {
	db kv.Database
}

func New(db kv.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Database() kv.Database {
	return s.db
}

func sentKey(fingerprint string) string {
	return path.Join(SentKeyspace, fingerprint)
}

// historyKey orders history records by delivery time. Time is formatted with
// fixed width so that lexicographic order matches the time order.
func historyKey(at time.Time, fingerprint string) string {
	return path.Join(HistoryKeyspace, fmt.Sprintf("%020d-%s", at.UnixNano(), fingerprint))
}

func scannerKey(name string) string {
	return path.Join(ScannerKeyspace, name)
}

// LastSent returns the most recent delivery record for the alert fingerprint.
// Returns os.ErrNotExist if the alert was never delivered.
func (s *Store) LastSent(ctx context.Context, fingerprint string) (*gobs.SentAlert, error) {
	return kvutil.GetDB[gobs.SentAlert](ctx, s.db, sentKey(fingerprint))
}

// SentWithin returns true if the alert fingerprint was delivered within the
// cooldown duration before now.
func (s *Store) SentWithin(ctx context.Context, fingerprint string, cooldown time.Duration, now time.Time) (bool, error) {
	last, err := s.LastSent(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return now.Sub(last.SentAt) < cooldown, nil
}

// RecordSent saves the delivery of an alert in the dedup table and the
// history atomically.
func (s *Store) RecordSent(ctx context.Context, a *alert.Alert, at time.Time, notifiers []string) error {
	fp := a.Fingerprint()
	record := func(ctx context.Context, rw kv.ReadWriter) error {
		count := 0
		if last, err := kvutil.Get[gobs.SentAlert](ctx, rw, sentKey(fp)); err == nil {
			count = last.Count
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		v := &gobs.SentAlert{
			Fingerprint: fp,
			Scanner:     a.Scanner,
			Kind:        a.Kind,
			Symbol:      a.Symbol,
			Level:       a.Level.String(),
			Title:       a.Title,
			Summary:     a.Summary,
			SentAt:      at,
			Notifiers:   notifiers,
			Count:       count + 1,
		}
		if err := kvutil.Set(ctx, rw, sentKey(fp), v); err != nil {
			return fmt.Errorf("could not save sent alert record: %w", err)
		}
		if err := kvutil.Set(ctx, rw, historyKey(at, fp), v); err != nil {
			return fmt.Errorf("could not save alert history record: %w", err)
		}
		return nil
	}
	return kv.WithReadWriter(ctx, s.db, record)
}

// History returns delivered alerts newest first, optionally limited to a
// scanner. Non-positive limit returns all records.
func (s *Store) History(ctx context.Context, scanner string, limit int) ([]*gobs.SentAlert, error) {
	return s.HistoryIn(ctx, scanner, nil, limit)
}

// HistoryIn is like History, but only returns the alerts delivered in the
// period. Nil or zero period is unbounded.
func (s *Store) HistoryIn(ctx context.Context, scanner string, period *timerange.Range, limit int) ([]*gobs.SentAlert, error) {
	var records []*gobs.SentAlert
	collect := func(_ context.Context, _ kv.Reader, _ string, v *gobs.SentAlert) error {
		if period.Before(v.SentAt) {
			return io.EOF
		}
		if !period.InRange(v.SentAt) {
			return nil
		}
		if len(scanner) > 0 && v.Scanner != scanner {
			return nil
		}
		records = append(records, v)
		if limit > 0 && len(records) >= limit {
			return io.EOF
		}
		return nil
	}
	begin, end := kvutil.PathRange(HistoryKeyspace)
	if err := kvutil.DescendDB(ctx, s.db, begin, end, collect); err != nil {
		return nil, fmt.Errorf("could not scan alert history: %w", err)
	}
	return records, nil
}

// Prune deletes history and dedup records of alerts delivered before the
// input time. Returns the number of history records deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	npruned := 0
	prune := func(ctx context.Context, rw kv.ReadWriter) error {
		var keys []string
		collect := func(_ context.Context, _ kv.Reader, k string, v *gobs.SentAlert) error {
			if v.SentAt.Before(before) {
				keys = append(keys, k)
			}
			return nil
		}

		hbegin, hend := kvutil.PathRange(HistoryKeyspace)
		if err := kvutil.Ascend(ctx, rw, hbegin, hend, collect); err != nil {
			return err
		}
		npruned = len(keys)

		sbegin, send := kvutil.PathRange(SentKeyspace)
		if err := kvutil.Ascend(ctx, rw, sbegin, send, collect); err != nil {
			return err
		}

		for _, k := range keys {
			if err := rw.Delete(ctx, k); err != nil {
				return fmt.Errorf("could not delete key %q: %w", k, err)
			}
		}
		return nil
	}
	if err := kv.WithReadWriter(ctx, s.db, prune); err != nil {
		return 0, err
	}
	return npruned, nil
}

// ScannerState returns the saved state for a scanner or a new empty state if
// it was never saved.
func (s *Store) ScannerState(ctx context.Context, name string) (*gobs.ScannerState, error) {
	state, err := kvutil.GetDB[gobs.ScannerState](ctx, s.db, scannerKey(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.ScannerState{Name: name}
	}
	if state.Values == nil {
		state.Values = make(map[string]string)
	}
	return state, nil
}

// UpdateScannerState runs a read-modify-write transaction over the scanner
// state.
func (s *Store) UpdateScannerState(ctx context.Context, name string, fn func(*gobs.ScannerState) error) error {
	if len(name) == 0 || strings.Contains(name, "/") {
		return fmt.Errorf("invalid scanner name %q: %w", name, os.ErrInvalid)
	}
	update := func(ctx context.Context, rw kv.ReadWriter) error {
		state, err := kvutil.Get[gobs.ScannerState](ctx, rw, scannerKey(name))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			state = &gobs.ScannerState{Name: name}
		}
		if state.Values == nil {
			state.Values = make(map[string]string)
		}
		if err := fn(state); err != nil {
			return err
		}
		return kvutil.Set(ctx, rw, scannerKey(name), state)
	}
	return kv.WithReadWriter(ctx, s.db, update)
}
