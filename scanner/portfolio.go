// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/shopspring/decimal"
)

// PositionSource is implemented by binance.Client.
type PositionSource interface {
	Positions(ctx context.Context) ([]*alert.Position, error)
}

type PortfolioOptions struct {
	Name string

	// ProfitPercent and LossPercent are unrealized PnL thresholds relative to
	// the position margin.
	ProfitPercent decimal.Decimal
	LossPercent   decimal.Decimal

	// LiquidationPercent raises a critical alert when the mark price is
	// within this distance of the liquidation price.
	LiquidationPercent decimal.Decimal

	// Summary adds one informational alert with totals across positions.
	Summary bool

	Now func() time.Time
}

func (v *PortfolioOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "portfolio"
	}
	if v.ProfitPercent.IsZero() {
		v.ProfitPercent = decimal.NewFromInt(50)
	}
	if v.LossPercent.IsZero() {
		v.LossPercent = decimal.NewFromInt(25)
	}
	if v.LiquidationPercent.IsZero() {
		v.LiquidationPercent = decimal.NewFromInt(10)
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *PortfolioOptions) Check() error {
	if !v.ProfitPercent.IsPositive() || !v.LossPercent.IsPositive() || !v.LiquidationPercent.IsPositive() {
		return fmt.Errorf("portfolio thresholds must be positive: %w", os.ErrInvalid)
	}
	return nil
}

// Portfolio raises alerts for open futures positions.
type Portfolio struct {
	opts PortfolioOptions

	source PositionSource
}

func NewPortfolio(source PositionSource, opts *PortfolioOptions) (*Portfolio, error) {
	if opts == nil {
		opts = new(PortfolioOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Portfolio{opts: *opts, source: source}, nil
}

func (s *Portfolio) Name() string {
	return s.opts.Name
}

func (s *Portfolio) Scan(ctx context.Context) ([]*alert.Alert, error) {
	positions, err := s.source.Positions(ctx)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()

	var alerts []*alert.Alert
	for _, p := range positions {
		if a := s.positionAlert(p); a != nil {
			a.At = now
			a.Dedup = p.Side
			alerts = append(alerts, a)
		}
	}
	sortAlerts(alerts)

	if s.opts.Summary && len(positions) > 0 {
		alerts = append(alerts, s.summaryAlert(positions, now))
	}
	return alerts, nil
}

func (s *Portfolio) positionAlert(p *alert.Position) *alert.Alert {
	if dist, ok := p.LiquidationDistance(); ok && dist.LessThanOrEqual(s.opts.LiquidationPercent) {
		return alert.NewPositionAlert(s.opts.Name, "liquidation-risk", alert.Critical,
			fmt.Sprintf("%s %s is %s%% from liquidation", p.Symbol, p.Side, dist.StringFixed(2)), p)
	}
	pnl := p.PnLPercent()
	if pnl.LessThanOrEqual(s.opts.LossPercent.Neg()) {
		return alert.NewPositionAlert(s.opts.Name, "loss", alert.Warning,
			fmt.Sprintf("%s %s is down %s%%", p.Symbol, p.Side, pnl.Abs().StringFixed(2)), p)
	}
	if pnl.GreaterThanOrEqual(s.opts.ProfitPercent) {
		return alert.NewPositionAlert(s.opts.Name, "profit", alert.Info,
			fmt.Sprintf("%s %s is up %s%%", p.Symbol, p.Side, pnl.StringFixed(2)), p)
	}
	return nil
}

func (s *Portfolio) summaryAlert(positions []*alert.Position, now time.Time) *alert.Alert {
	var pnl, margin decimal.Decimal
	for _, p := range positions {
		pnl = pnl.Add(p.UnrealizedPnL)
		margin = margin.Add(p.Margin())
	}
	percent := decimal.Zero
	if margin.IsPositive() {
		percent = pnl.Div(margin).Mul(decimal.NewFromInt(100))
	}

	a := newAlert(s.opts.Name, "summary", "", alert.Info,
		fmt.Sprintf("Portfolio: %d open position(s)", len(positions)), now)
	a.Summary = fmt.Sprintf("Unrealized PnL %s (%s%%) on margin %s", pnl.StringFixed(2), percent.StringFixed(2), margin.StringFixed(2))
	// One summary per hour at most.
	a.Dedup = now.UTC().Truncate(time.Hour).Format(time.RFC3339)
	for _, p := range positions {
		a.AddField(p.Symbol, fmt.Sprintf("%s %s (%s%%)", p.Side, p.UnrealizedPnL.StringFixed(2), p.PnLPercent().StringFixed(2)))
	}
	return a
}
