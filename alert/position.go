// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Position is the normalized open position record used by the portfolio
// alerts, independent of the exchange that reported it.
type Position struct {
	Exchange string
	Symbol   string

	// Side is either "LONG" or "SHORT".
	Side string

	Size             decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	LiquidationPrice decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	Leverage         decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Margin returns the initial margin for the position.
func (p *Position) Margin() decimal.Decimal {
	notional := p.Size.Abs().Mul(p.EntryPrice)
	if p.Leverage.IsPositive() {
		return notional.Div(p.Leverage)
	}
	return notional
}

// PnLPercent returns unrealized profit or loss as a percentage of the margin.
func (p *Position) PnLPercent() decimal.Decimal {
	margin := p.Margin()
	if margin.IsZero() {
		return decimal.Zero
	}
	return p.UnrealizedPnL.Div(margin).Mul(hundred)
}

// LiquidationDistance returns the distance between mark price and
// liquidation price as a percentage of the mark price. Returns false if the
// position has no liquidation price.
func (p *Position) LiquidationDistance() (decimal.Decimal, bool) {
	if !p.LiquidationPrice.IsPositive() || !p.MarkPrice.IsPositive() {
		return decimal.Zero, false
	}
	return p.MarkPrice.Sub(p.LiquidationPrice).Abs().Div(p.MarkPrice).Mul(hundred), true
}

// NewPositionAlert builds the alert record for a position. All portfolio
// alerts go through this function so that positions are always rendered the
// same way.
func NewPositionAlert(scanner, kind string, level Level, title string, p *Position) *Alert {
	a := &Alert{
		Scanner: scanner,
		Kind:    kind,
		Symbol:  p.Symbol,
		Level:   level,
		Title:   title,
		Summary: fmt.Sprintf("%s %s %sx on %s", strings.ToUpper(p.Side), p.Symbol, p.Leverage.String(), p.Exchange),
	}
	a.AddField("Size", p.Size.String())
	a.AddField("Entry", p.EntryPrice.String())
	a.AddField("Mark", p.MarkPrice.String())
	a.AddField("PnL", fmt.Sprintf("%s (%s%%)", p.UnrealizedPnL.StringFixed(2), p.PnLPercent().StringFixed(2)))
	if dist, ok := p.LiquidationDistance(); ok {
		a.AddField("Liquidation", fmt.Sprintf("%s (%s%% away)", p.LiquidationPrice.String(), dist.StringFixed(2)))
	}
	return a
}
