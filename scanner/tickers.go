// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/sources/binance"
	"github.com/shopspring/decimal"
)

// TickerSource is implemented by binance.Client.
type TickerSource interface {
	Tickers(ctx context.Context, symbols []string) ([]*binance.Ticker, error)
}

type TickersOptions struct {
	Name string

	Symbols []string

	// ChangePercent is the absolute 24h percent change that raises a warning.
	ChangePercent decimal.Decimal

	// CriticalChangePercent raises the level to critical. Defaults to twice
	// the ChangePercent.
	CriticalChangePercent decimal.Decimal

	// MinQuoteVolume skips illiquid symbols.
	MinQuoteVolume decimal.Decimal

	Now func() time.Time
}

func (v *TickersOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "tickers"
	}
	if v.ChangePercent.IsZero() {
		v.ChangePercent = decimal.NewFromInt(5)
	}
	if v.CriticalChangePercent.IsZero() {
		v.CriticalChangePercent = v.ChangePercent.Mul(decimal.NewFromInt(2))
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *TickersOptions) Check() error {
	if len(v.Symbols) == 0 {
		return fmt.Errorf("tickers scanner needs at least one symbol: %w", os.ErrInvalid)
	}
	if !v.ChangePercent.IsPositive() {
		return fmt.Errorf("change percent must be positive: %w", os.ErrInvalid)
	}
	if v.CriticalChangePercent.LessThan(v.ChangePercent) {
		return fmt.Errorf("critical change percent cannot be below change percent: %w", os.ErrInvalid)
	}
	return nil
}

// Tickers raises alerts on large 24h price moves of spot symbols.
type Tickers struct {
	opts TickersOptions

	source TickerSource
}

func NewTickers(source TickerSource, opts *TickersOptions) (*Tickers, error) {
	if opts == nil {
		opts = new(TickersOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Tickers{opts: *opts, source: source}, nil
}

func (s *Tickers) Name() string {
	return s.opts.Name
}

func (s *Tickers) Scan(ctx context.Context) ([]*alert.Alert, error) {
	tickers, err := s.source.Tickers(ctx, s.opts.Symbols)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()

	var alerts []*alert.Alert
	for _, t := range tickers {
		if t.QuoteVolume.LessThan(s.opts.MinQuoteVolume) {
			continue
		}
		change := t.PriceChangePercent
		if change.Abs().LessThan(s.opts.ChangePercent) {
			continue
		}

		kind, verb := "pump", "up"
		if change.IsNegative() {
			kind, verb = "dump", "down"
		}
		level := alert.Warning
		if change.Abs().GreaterThanOrEqual(s.opts.CriticalChangePercent) {
			level = alert.Critical
		}

		a := newAlert(s.opts.Name, kind, t.Symbol, level,
			fmt.Sprintf("%s %s %s%% in 24h", t.Symbol, verb, change.Abs().StringFixed(2)), now)
		a.AddField("Last Price", t.LastPrice.String())
		a.AddField("24h Range", fmt.Sprintf("%s - %s", t.LowPrice, t.HighPrice))
		a.AddField("Quote Volume", t.QuoteVolume.StringFixed(0))
		alerts = append(alerts, a)
	}
	sortAlerts(alerts)
	return alerts, nil
}
