// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/sources/coingecko"
)

// PriceSource is implemented by coingecko.Client.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string, currency string) (map[string]*coingecko.Price, error)
	Trending(ctx context.Context) ([]*coingecko.TrendingCoin, error)
}

type PricesOptions struct {
	Name string

	// IDs are CoinGecko coin ids, eg: "bitcoin".
	IDs []string

	Currency string

	// MovePercent raises an alert when the price moved at least this much
	// since the reference price. The reference is reset on every alert.
	MovePercent float64

	// Trending raises an alert when a watched coin enters the trending list.
	Trending bool

	Now func() time.Time
}

func (v *PricesOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "prices"
	}
	if len(v.Currency) == 0 {
		v.Currency = "usd"
	}
	if v.MovePercent == 0 {
		v.MovePercent = 5
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *PricesOptions) Check() error {
	if len(v.IDs) == 0 {
		return fmt.Errorf("prices scanner needs at least one coin id: %w", os.ErrInvalid)
	}
	if v.MovePercent < 0 {
		return fmt.Errorf("move percent cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Prices watches CoinGecko prices for moves since a persisted reference.
type Prices struct {
	opts PricesOptions

	source PriceSource
	state  State
}

func NewPrices(source PriceSource, state State, opts *PricesOptions) (*Prices, error) {
	if state == nil {
		return nil, fmt.Errorf("prices scanner requires state: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(PricesOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Prices{opts: *opts, source: source, state: state}, nil
}

func (s *Prices) Name() string {
	return s.opts.Name
}

func priceKey(id, currency string) string {
	return "price:" + id + ":" + currency
}

func (s *Prices) Scan(ctx context.Context) ([]*alert.Alert, error) {
	prices, err := s.source.SimplePrice(ctx, s.opts.IDs, s.opts.Currency)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()

	var alerts []*alert.Alert
	update := func(state *gobs.ScannerState) error {
		alerts = alerts[:0]
		for _, id := range s.opts.IDs {
			p, ok := prices[id]
			if !ok || p.Price <= 0 {
				continue
			}
			key := priceKey(id, s.opts.Currency)
			current := strconv.FormatFloat(p.Price, 'g', -1, 64)

			ref, err := strconv.ParseFloat(state.Values[key], 64)
			if err != nil || ref <= 0 {
				state.Values[key] = current
				continue
			}
			move := (p.Price - ref) / ref * 100
			if math.Abs(move) < s.opts.MovePercent {
				continue
			}
			state.Values[key] = current
			alerts = append(alerts, s.moveAlert(p, ref, move, now))
		}
		return nil
	}
	if err := s.state.UpdateScannerState(ctx, s.opts.Name, update); err != nil {
		return nil, fmt.Errorf("could not update reference prices: %w", err)
	}

	if s.opts.Trending {
		trending, err := s.source.Trending(ctx)
		if err != nil {
			slog.Warn("could not fetch trending coins (ignored)", "scanner", s.opts.Name, "err", err)
		} else {
			for _, t := range trending {
				if slices.Contains(s.opts.IDs, t.ID) {
					alerts = append(alerts, s.trendingAlert(t, now))
				}
			}
		}
	}
	sortAlerts(alerts)
	return alerts, nil
}

func (s *Prices) moveAlert(p *coingecko.Price, ref, move float64, now time.Time) *alert.Alert {
	kind, verb := "move-up", "up"
	if move < 0 {
		kind, verb = "move-down", "down"
	}
	level := alert.Info
	if math.Abs(move) >= 2*s.opts.MovePercent {
		level = alert.Warning
	}
	currency := strings.ToUpper(p.Currency)
	a := newAlert(s.opts.Name, kind, p.ID, level,
		fmt.Sprintf("%s %s %.2f%%", p.ID, verb, math.Abs(move)), now)
	a.Summary = fmt.Sprintf("%.6g %s, was %.6g %s", p.Price, currency, ref, currency)
	a.Dedup = strconv.FormatFloat(p.Price, 'g', 6, 64)
	if p.Change24h != 0 {
		a.AddField("24h Change", fmt.Sprintf("%+.2f%%", p.Change24h))
	}
	if p.MarketCap != 0 {
		a.AddField("Market Cap", fmt.Sprintf("%.0f %s", p.MarketCap, currency))
	}
	return a
}

func (s *Prices) trendingAlert(t *coingecko.TrendingCoin, now time.Time) *alert.Alert {
	a := newAlert(s.opts.Name, "trending", t.ID, alert.Info,
		fmt.Sprintf("%s (%s) is trending on CoinGecko", t.Name, strings.ToUpper(t.Symbol)), now)
	a.Dedup = now.UTC().Format(time.DateOnly)
	if t.MarketCapRank > 0 {
		a.AddField("Market Cap Rank", t.MarketCapRank)
	}
	return a
}
