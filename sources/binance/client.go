// Copyright (c) 2025 BVK Chaitanya

// Package binance adapts the go-binance spot and USDⓈ-M futures clients to
// the shared rate limiter and the normalized position record.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/cache"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const ExchangeName = "binance"

type Options struct {
	// SpotBaseURL and FuturesBaseURL override the exchange endpoints.
	SpotBaseURL    string
	FuturesBaseURL string

	Timeout  time.Duration
	CacheTTL time.Duration

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.Timeout == 0 {
		v.Timeout = 30 * time.Second
	}
	if v.CacheTTL == 0 {
		v.CacheTTL = 30 * time.Second
	}
}

// Ticker holds the rolling 24 hour statistics for a spot symbol.
type Ticker struct {
	Symbol             string
	LastPrice          decimal.Decimal
	PriceChangePercent decimal.Decimal
	HighPrice          decimal.Decimal
	LowPrice           decimal.Decimal
	Volume             decimal.Decimal
	QuoteVolume        decimal.Decimal
	Trades             int64
}

type Client struct {
	opts Options

	limiter *ratelimit.Limiter

	spot    *gobinance.Client
	futures *futures.Client

	tickers *cache.Cache[string, []*Ticker]
}

// New creates a client. Key and secret may be empty when only public market
// data is used.
func New(key, secret string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	limiter := opts.Limiter
	if limiter == nil {
		l, err := ratelimit.New("binance", &ratelimit.Options{Metrics: opts.Metrics})
		if err != nil {
			return nil, err
		}
		limiter = l
	}

	httpClient := &http.Client{Timeout: opts.Timeout}

	spot := gobinance.NewClient(key, secret)
	spot.HTTPClient = httpClient
	if len(opts.SpotBaseURL) > 0 {
		spot.BaseURL = strings.TrimSuffix(opts.SpotBaseURL, "/")
	}

	fut := futures.NewClient(key, secret)
	fut.HTTPClient = httpClient
	if len(opts.FuturesBaseURL) > 0 {
		fut.BaseURL = strings.TrimSuffix(opts.FuturesBaseURL, "/")
	}

	c := &Client{
		opts:    *opts,
		limiter: limiter,
		spot:    spot,
		futures: fut,
		tickers: cache.New[string, []*Ticker](&cache.Options{Name: "binance-tickers", Metrics: opts.Metrics}),
	}
	return c, nil
}

// statusOf maps a go-binance error to an http status code for the limiter.
// Binance reports request weight violations with code -1003.
func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == -1003 {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	}
	return 0
}

func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	slot, err := c.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(ctx)
	status := statusOf(err)
	slot.Release(status, 0)
	if status != 0 {
		c.opts.Metrics.APIRequest("binance", status)
	}
	return err
}

// Tickers returns 24 hour statistics for the given spot symbols in the same
// order. Symbols unknown to the exchange are missing from the result.
func (c *Client) Tickers(ctx context.Context, symbols []string) ([]*Ticker, error) {
	symbols = lo.Uniq(lo.Map(lo.Compact(symbols), func(s string, _ int) string { return strings.ToUpper(s) }))
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required: %w", os.ErrInvalid)
	}
	sorted := slices.Sorted(slices.Values(symbols))

	fetch := func(ctx context.Context) ([]*Ticker, error) {
		var stats []*gobinance.PriceChangeStats
		err := c.call(ctx, func(ctx context.Context) error {
			svc := c.spot.NewListPriceChangeStatsService()
			if len(sorted) == 1 {
				svc = svc.Symbol(sorted[0])
			} else {
				svc = svc.Symbols(sorted)
			}
			v, err := svc.Do(ctx)
			stats = v
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("could not fetch binance 24h tickers: %w", err)
		}
		var tickers []*Ticker
		for _, s := range stats {
			t, err := parseTicker(s)
			if err != nil {
				return nil, err
			}
			tickers = append(tickers, t)
		}
		return tickers, nil
	}

	all, err := c.tickers.GetOrFetch(ctx, strings.Join(sorted, ","), c.opts.CacheTTL, fetch)
	if err != nil {
		return nil, err
	}
	bySymbol := lo.KeyBy(all, func(t *Ticker) string { return t.Symbol })
	var result []*Ticker
	for _, s := range symbols {
		if t, ok := bySymbol[s]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// Positions returns the open USDⓈ-M futures positions. Requires api key and
// secret.
func (c *Client) Positions(ctx context.Context) ([]*alert.Position, error) {
	if len(c.futures.APIKey) == 0 || len(c.futures.SecretKey) == 0 {
		return nil, fmt.Errorf("binance api key and secret are required for positions: %w", os.ErrInvalid)
	}
	var risks []*futures.PositionRisk
	err := c.call(ctx, func(ctx context.Context) error {
		v, err := c.futures.NewGetPositionRiskService().Do(ctx)
		risks = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch binance futures positions: %w", err)
	}

	var positions []*alert.Position
	for _, r := range risks {
		p, err := parsePosition(r)
		if err != nil {
			return nil, err
		}
		if p.Size.IsZero() {
			continue
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func parseTicker(s *gobinance.PriceChangeStats) (*Ticker, error) {
	t := &Ticker{Symbol: s.Symbol, Trades: s.Count}
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&t.LastPrice, s.LastPrice},
		{&t.PriceChangePercent, s.PriceChangePercent},
		{&t.HighPrice, s.HighPrice},
		{&t.LowPrice, s.LowPrice},
		{&t.Volume, s.Volume},
		{&t.QuoteVolume, s.QuoteVolume},
	}
	for _, f := range fields {
		if err := parseDecimal(f.dst, f.src); err != nil {
			return nil, fmt.Errorf("could not parse ticker for %s: %w", s.Symbol, err)
		}
	}
	return t, nil
}

func parsePosition(r *futures.PositionRisk) (*alert.Position, error) {
	p := &alert.Position{
		Exchange: ExchangeName,
		Symbol:   r.Symbol,
	}
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.Size, r.PositionAmt},
		{&p.EntryPrice, r.EntryPrice},
		{&p.MarkPrice, r.MarkPrice},
		{&p.LiquidationPrice, r.LiquidationPrice},
		{&p.UnrealizedPnL, r.UnRealizedProfit},
		{&p.Leverage, r.Leverage},
	}
	for _, f := range fields {
		if err := parseDecimal(f.dst, f.src); err != nil {
			return nil, fmt.Errorf("could not parse position for %s: %w", r.Symbol, err)
		}
	}

	switch strings.ToUpper(r.PositionSide) {
	case "LONG", "SHORT":
		p.Side = strings.ToUpper(r.PositionSide)
	default:
		// One-way mode reports BOTH; direction comes from the sign.
		p.Side = "LONG"
		if p.Size.IsNegative() {
			p.Side = "SHORT"
		}
	}
	p.Size = p.Size.Abs()
	return p, nil
}

func parseDecimal(dst *decimal.Decimal, s string) error {
	if len(s) == 0 {
		*dst = decimal.Zero
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
