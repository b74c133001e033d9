// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/sources/lunarcrush"
)

// SocialSource is implemented by lunarcrush.Client.
type SocialSource interface {
	Coin(ctx context.Context, symbol string) (*lunarcrush.CoinMetrics, error)
}

type SocialOptions struct {
	Name string

	Symbols []string

	// MinGalaxyScore raises an alert when the Galaxy Score reaches this value.
	MinGalaxyScore float64

	// MaxAltRank raises an alert when the AltRank is at or better than this
	// value.
	MaxAltRank int

	// MinScoreChange raises a momentum alert when the Galaxy Score rises by
	// at least this much since the previous measurement.
	MinScoreChange float64

	Concurrency int

	Now func() time.Time
}

func (v *SocialOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "social"
	}
	if v.MinGalaxyScore == 0 {
		v.MinGalaxyScore = 70
	}
	if v.MaxAltRank == 0 {
		v.MaxAltRank = 50
	}
	if v.MinScoreChange == 0 {
		v.MinScoreChange = 10
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *SocialOptions) Check() error {
	if len(v.Symbols) == 0 {
		return fmt.Errorf("social scanner needs at least one symbol: %w", os.ErrInvalid)
	}
	if v.MaxAltRank < 0 {
		return fmt.Errorf("max altrank cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Social raises alerts from LunarCrush social metrics.
type Social struct {
	opts SocialOptions

	source SocialSource
}

func NewSocial(source SocialSource, opts *SocialOptions) (*Social, error) {
	if opts == nil {
		opts = new(SocialOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Social{opts: *opts, source: source}, nil
}

func (s *Social) Name() string {
	return s.opts.Name
}

func (s *Social) Scan(ctx context.Context) ([]*alert.Alert, error) {
	return scanEach(ctx, s.opts.Name, s.opts.Concurrency, s.opts.Symbols, s.scanSymbol)
}

func (s *Social) scanSymbol(ctx context.Context, symbol string) ([]*alert.Alert, error) {
	m, err := s.source.Coin(ctx, symbol)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)
	now := s.opts.Now()

	withMetrics := func(a *alert.Alert) *alert.Alert {
		a.Summary = fmt.Sprintf("%s at $%.6g (%+.2f%% 24h)", m.Name, m.Price, m.PercentChange24h)
		a.AddField("Galaxy Score", fmt.Sprintf("%.1f", m.GalaxyScore))
		a.AddField("AltRank", m.AltRank)
		if m.Sentiment > 0 {
			a.AddField("Sentiment", fmt.Sprintf("%.0f%%", m.Sentiment))
		}
		return a
	}

	var alerts []*alert.Alert
	if m.GalaxyScore >= s.opts.MinGalaxyScore {
		alerts = append(alerts, withMetrics(newAlert(s.opts.Name, "galaxy-score", symbol, alert.Info,
			fmt.Sprintf("%s Galaxy Score is %.0f", symbol, m.GalaxyScore), now)))
	}
	if m.AltRank > 0 && m.AltRank <= s.opts.MaxAltRank {
		alerts = append(alerts, withMetrics(newAlert(s.opts.Name, "altrank", symbol, alert.Info,
			fmt.Sprintf("%s AltRank is %d", symbol, m.AltRank), now)))
	}
	if change := m.GalaxyScoreChange(); change >= s.opts.MinScoreChange {
		a := withMetrics(newAlert(s.opts.Name, "social-momentum", symbol, alert.Warning,
			fmt.Sprintf("%s social momentum up %.0f points", symbol, change), now))
		a.AddField("Previous Score", fmt.Sprintf("%.1f", m.GalaxyScorePrevious))
		alerts = append(alerts, a)
	}
	return alerts, nil
}
