// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/sources/taapi"
)

// IndicatorSource is implemented by taapi.Client. Bulk returns the values
// by indicator name; indicators the source could not compute are missing.
type IndicatorSource interface {
	Bulk(ctx context.Context, symbol, interval string, indicators ...string) (map[string]*taapi.Value, error)
}

type IndicatorsOptions struct {
	Name string

	// Symbols are pairs in BASE/QUOTE format.
	Symbols []string

	// Intervals are candle intervals, eg: "1h", "4h". Defaults to "4h".
	Intervals []string

	RSIOverbought float64
	RSIOversold   float64

	DisableMACD   bool
	DisableBBands bool

	Concurrency int

	Now func() time.Time
}

func (v *IndicatorsOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "indicators"
	}
	if len(v.Intervals) == 0 {
		v.Intervals = []string{"4h"}
	}
	if v.RSIOverbought == 0 {
		v.RSIOverbought = 70
	}
	if v.RSIOversold == 0 {
		v.RSIOversold = 30
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *IndicatorsOptions) Check() error {
	if len(v.Symbols) == 0 {
		return fmt.Errorf("indicators scanner needs at least one symbol: %w", os.ErrInvalid)
	}
	for _, s := range v.Symbols {
		r := &taapi.Request{Symbol: s, Indicator: "rsi", Interval: v.Intervals[0]}
		if err := r.Check(); err != nil {
			return err
		}
	}
	for _, iv := range v.Intervals {
		if _, err := taapi.IntervalDuration(iv); err != nil {
			return err
		}
	}
	if v.RSIOversold >= v.RSIOverbought {
		return fmt.Errorf("rsi oversold level %v must be below overbought level %v: %w", v.RSIOversold, v.RSIOverbought, os.ErrInvalid)
	}
	return nil
}

// Indicators raises alerts on RSI extremes, MACD histogram sign flips and
// price closing outside the Bollinger Bands.
type Indicators struct {
	opts IndicatorsOptions

	source IndicatorSource
	state  State

	// indicators are requested together for every symbol and interval.
	indicators []string
}

type indicatorItem struct {
	Symbol   string
	Interval string
}

// NewIndicators creates the scanner. State is optional; MACD flips are not
// detected without it.
func NewIndicators(source IndicatorSource, state State, opts *IndicatorsOptions) (*Indicators, error) {
	if opts == nil {
		opts = new(IndicatorsOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	indicators := []string{"rsi"}
	if !opts.DisableMACD {
		indicators = append(indicators, "macd")
	}
	if !opts.DisableBBands {
		indicators = append(indicators, "bbands", "price")
	}
	return &Indicators{opts: *opts, source: source, state: state, indicators: indicators}, nil
}

func (s *Indicators) Name() string {
	return s.opts.Name
}

func macdKey(symbol, interval string) string {
	return "macd:" + symbol + ":" + interval
}

func (s *Indicators) Scan(ctx context.Context) ([]*alert.Alert, error) {
	previous := make(map[string]string)
	if s.state != nil && !s.opts.DisableMACD {
		state, err := s.state.ScannerState(ctx, s.opts.Name)
		if err != nil {
			return nil, fmt.Errorf("could not load scanner state: %w", err)
		}
		previous = state.Values
	}

	var items []indicatorItem
	for _, sym := range s.opts.Symbols {
		for _, iv := range s.opts.Intervals {
			items = append(items, indicatorItem{Symbol: sym, Interval: iv})
		}
	}

	var mu sync.Mutex
	updates := make(map[string]string)

	scanOne := func(ctx context.Context, item indicatorItem) ([]*alert.Alert, error) {
		now := s.opts.Now()
		var alerts []*alert.Alert

		values, err := s.source.Bulk(ctx, item.Symbol, item.Interval, s.indicators...)
		if err != nil {
			return nil, err
		}
		rsi, ok := values["rsi"]
		if !ok {
			return nil, fmt.Errorf("rsi is not available for %s on %s: %w", item.Symbol, item.Interval, os.ErrNotExist)
		}
		if a := s.rsiAlert(item, rsi.Value, now); a != nil {
			alerts = append(alerts, a)
		}

		if macd, ok := values["macd"]; ok && !s.opts.DisableMACD {
			key := macdKey(item.Symbol, item.Interval)
			if prev, ok := previous[key]; ok {
				if p, err := strconv.ParseFloat(prev, 64); err == nil {
					if a := s.macdAlert(item, p, macd, now); a != nil {
						alerts = append(alerts, a)
					}
				}
			}
			mu.Lock()
			updates[key] = strconv.FormatFloat(macd.MACDHist, 'g', -1, 64)
			mu.Unlock()
		}

		bands, hasBands := values["bbands"]
		price, hasPrice := values["price"]
		if hasBands && hasPrice && !s.opts.DisableBBands {
			if a := s.bbandsAlert(item, price.Value, bands, now); a != nil {
				alerts = append(alerts, a)
			}
		}
		return alerts, nil
	}

	alerts, err := scanEach(ctx, s.opts.Name, s.opts.Concurrency, items, scanOne)
	if err != nil {
		return nil, err
	}

	if s.state != nil && len(updates) > 0 {
		save := func(state *gobs.ScannerState) error {
			for k, v := range updates {
				state.Values[k] = v
			}
			return nil
		}
		if err := s.state.UpdateScannerState(ctx, s.opts.Name, save); err != nil {
			return nil, fmt.Errorf("could not save macd histogram values: %w", err)
		}
	}
	return alerts, nil
}

func (s *Indicators) rsiAlert(item indicatorItem, rsi float64, now time.Time) *alert.Alert {
	var a *alert.Alert
	switch {
	case rsi >= s.opts.RSIOverbought:
		a = newAlert(s.opts.Name, "rsi-overbought", item.Symbol, alert.Warning,
			fmt.Sprintf("%s RSI overbought on %s", item.Symbol, item.Interval), now)
		a.Summary = fmt.Sprintf("RSI %.2f is above %.0f", rsi, s.opts.RSIOverbought)
	case rsi <= s.opts.RSIOversold:
		a = newAlert(s.opts.Name, "rsi-oversold", item.Symbol, alert.Warning,
			fmt.Sprintf("%s RSI oversold on %s", item.Symbol, item.Interval), now)
		a.Summary = fmt.Sprintf("RSI %.2f is below %.0f", rsi, s.opts.RSIOversold)
	default:
		return nil
	}
	a.Dedup = item.Interval
	a.AddField("RSI", fmt.Sprintf("%.2f", rsi))
	a.AddField("Interval", item.Interval)
	return a
}

func (s *Indicators) macdAlert(item indicatorItem, prevHist float64, macd *taapi.Value, now time.Time) *alert.Alert {
	var kind, title string
	switch {
	case prevHist <= 0 && macd.MACDHist > 0:
		kind, title = "macd-bullish-cross", fmt.Sprintf("%s MACD bullish crossover on %s", item.Symbol, item.Interval)
	case prevHist >= 0 && macd.MACDHist < 0:
		kind, title = "macd-bearish-cross", fmt.Sprintf("%s MACD bearish crossover on %s", item.Symbol, item.Interval)
	default:
		return nil
	}
	a := newAlert(s.opts.Name, kind, item.Symbol, alert.Info, title, now)
	a.Dedup = item.Interval
	a.AddField("MACD", fmt.Sprintf("%.4f", macd.MACD))
	a.AddField("Signal", fmt.Sprintf("%.4f", macd.MACDSignal))
	a.AddField("Histogram", fmt.Sprintf("%.4f (was %.4f)", macd.MACDHist, prevHist))
	return a
}

func (s *Indicators) bbandsAlert(item indicatorItem, price float64, bands *taapi.Value, now time.Time) *alert.Alert {
	if bands.UpperBand == 0 || bands.LowerBand == 0 {
		return nil
	}
	var a *alert.Alert
	switch {
	case price > bands.UpperBand:
		a = newAlert(s.opts.Name, "bbands-upper", item.Symbol, alert.Info,
			fmt.Sprintf("%s closed above upper Bollinger Band on %s", item.Symbol, item.Interval), now)
	case price < bands.LowerBand:
		a = newAlert(s.opts.Name, "bbands-lower", item.Symbol, alert.Info,
			fmt.Sprintf("%s closed below lower Bollinger Band on %s", item.Symbol, item.Interval), now)
	default:
		return nil
	}
	a.Dedup = item.Interval
	a.AddField("Price", fmt.Sprintf("%.6g", price))
	a.AddField("Bands", fmt.Sprintf("%.6g / %.6g / %.6g", bands.LowerBand, bands.MiddleBand, bands.UpperBand))
	return a
}
