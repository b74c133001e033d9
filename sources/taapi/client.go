// Copyright (c) 2025 BVK Chaitanya

// Package taapi implements a client for the taapi.io technical indicators
// API. Indicator values are cached per (symbol, indicator, interval).
package taapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/cache"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/xhit/go-str2duration/v2"
)

const DefaultBaseURL = "https://api.taapi.io"

// Intervals supported by the API.
var Intervals = []string{"1m", "5m", "15m", "30m", "1h", "2h", "4h", "12h", "1d", "1w"}

type Options struct {
	BaseURL string

	// Exchange is the exchange whose candles are used, eg: "binance".
	Exchange string

	Timeout time.Duration

	// CacheTTL is the maximum age of a cached indicator value. Values are
	// never cached longer than the candle interval.
	CacheTTL time.Duration

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if len(v.BaseURL) == 0 {
		v.BaseURL = DefaultBaseURL
	}
	if len(v.Exchange) == 0 {
		v.Exchange = "binance"
	}
	if v.Timeout == 0 {
		v.Timeout = 30 * time.Second
	}
	if v.CacheTTL == 0 {
		v.CacheTTL = 5 * time.Minute
	}
}

// Value holds the result of any supported indicator. Single valued
// indicators set the Value field; MACD and Bollinger Bands set their
// respective fields.
type Value struct {
	Value float64 `json:"value"`

	MACD       float64 `json:"valueMACD"`
	MACDSignal float64 `json:"valueMACDSignal"`
	MACDHist   float64 `json:"valueMACDHist"`

	UpperBand  float64 `json:"valueUpperBand"`
	MiddleBand float64 `json:"valueMiddleBand"`
	LowerBand  float64 `json:"valueLowerBand"`
}

type Request struct {
	// Symbol is a pair in the BASE/QUOTE format, eg: "BTC/USDT".
	Symbol string

	// Indicator is the API endpoint name, eg: "rsi", "macd", "bbands".
	Indicator string

	Interval string

	// Period overrides the indicator's default period when non-zero.
	Period int
}

func (r *Request) Check() error {
	if !strings.Contains(r.Symbol, "/") {
		return fmt.Errorf("symbol %q must be in BASE/QUOTE format: %w", r.Symbol, os.ErrInvalid)
	}
	if len(r.Indicator) == 0 {
		return fmt.Errorf("indicator name cannot be empty: %w", os.ErrInvalid)
	}
	if _, err := IntervalDuration(r.Interval); err != nil {
		return err
	}
	if r.Period < 0 {
		return fmt.Errorf("period cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

func (r *Request) key() cache.IndicatorKey {
	indicator := r.Indicator
	if r.Period != 0 {
		indicator += ":" + strconv.Itoa(r.Period)
	}
	return cache.IndicatorKey{
		Symbol:    strings.ToUpper(r.Symbol),
		Indicator: indicator,
		Interval:  r.Interval,
	}
}

// IntervalDuration validates a candle interval and returns it's duration.
func IntervalDuration(interval string) (time.Duration, error) {
	if !slices.Contains(Intervals, interval) {
		return 0, fmt.Errorf("unsupported interval %q: %w", interval, os.ErrInvalid)
	}
	d, err := str2duration.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("could not parse interval %q: %w", interval, err)
	}
	return d, nil
}

type Client struct {
	opts Options

	secret string

	api *apiclient.Client

	cache *cache.Cache[cache.IndicatorKey, *Value]
}

func New(secret string, opts *Options) (*Client, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("taapi secret cannot be empty: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	api, err := apiclient.New("taapi", &apiclient.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Query:   url.Values{"secret": []string{secret}},
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:   *opts,
		secret: secret,
		api:    api,
		cache:  cache.New[cache.IndicatorKey, *Value](&cache.Options{Name: "taapi", Metrics: opts.Metrics}),
	}
	return c, nil
}

func (c *Client) ttl(interval string) time.Duration {
	ttl := c.opts.CacheTTL
	if d, err := IntervalDuration(interval); err == nil && d < ttl {
		ttl = d
	}
	return ttl
}

// Indicator returns the indicator value for the latest candle, possibly from
// the cache.
func (c *Client) Indicator(ctx context.Context, req *Request) (*Value, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) (*Value, error) {
		query := url.Values{
			"exchange": []string{c.opts.Exchange},
			"symbol":   []string{req.Symbol},
			"interval": []string{req.Interval},
		}
		if req.Period != 0 {
			query.Set("period", strconv.Itoa(req.Period))
		}
		v, err := apiclient.GetJSON[Value](ctx, c.api, req.Indicator, query)
		if err != nil {
			return nil, fmt.Errorf("could not fetch %s for %s on %s: %w", req.Indicator, req.Symbol, req.Interval, err)
		}
		return v, nil
	}
	return c.cache.GetOrFetch(ctx, req.key(), c.ttl(req.Interval), fetch)
}

func (c *Client) RSI(ctx context.Context, symbol, interval string) (float64, error) {
	v, err := c.Indicator(ctx, &Request{Symbol: symbol, Indicator: "rsi", Interval: interval})
	if err != nil {
		return 0, err
	}
	return v.Value, nil
}

func (c *Client) MACD(ctx context.Context, symbol, interval string) (*Value, error) {
	return c.Indicator(ctx, &Request{Symbol: symbol, Indicator: "macd", Interval: interval})
}

func (c *Client) BBands(ctx context.Context, symbol, interval string) (*Value, error) {
	return c.Indicator(ctx, &Request{Symbol: symbol, Indicator: "bbands", Interval: interval})
}

func (c *Client) Price(ctx context.Context, symbol, interval string) (float64, error) {
	v, err := c.Indicator(ctx, &Request{Symbol: symbol, Indicator: "price", Interval: interval})
	if err != nil {
		return 0, err
	}
	return v.Value, nil
}

type bulkIndicator struct {
	ID        string `json:"id"`
	Indicator string `json:"indicator"`
	Period    int    `json:"period,omitempty"`
}

type bulkConstruct struct {
	Exchange   string           `json:"exchange"`
	Symbol     string           `json:"symbol"`
	Interval   string           `json:"interval"`
	Indicators []*bulkIndicator `json:"indicators"`
}

type bulkRequest struct {
	Secret    string         `json:"secret"`
	Construct *bulkConstruct `json:"construct"`
}

type bulkResponse struct {
	Data []struct {
		ID        string   `json:"id"`
		Indicator string   `json:"indicator"`
		Result    *Value   `json:"result"`
		Errors    []string `json:"errors"`
	} `json:"data"`
}

// Bulk returns values for multiple indicators of one symbol and interval.
// Cached values are reused and all missing values are fetched with a single
// request. Indicators that the API could not compute are missing from the
// result.
func (c *Client) Bulk(ctx context.Context, symbol, interval string, indicators ...string) (map[string]*Value, error) {
	result := make(map[string]*Value)

	var missing []*Request
	for _, indicator := range indicators {
		req := &Request{Symbol: symbol, Indicator: indicator, Interval: interval}
		if err := req.Check(); err != nil {
			return nil, err
		}
		if v, ok := c.cache.Get(req.key()); ok {
			result[indicator] = v
			continue
		}
		missing = append(missing, req)
	}
	if len(missing) == 0 {
		return result, nil
	}

	construct := &bulkConstruct{
		Exchange: c.opts.Exchange,
		Symbol:   symbol,
		Interval: interval,
	}
	for _, req := range missing {
		construct.Indicators = append(construct.Indicators, &bulkIndicator{ID: req.Indicator, Indicator: req.Indicator})
	}
	body := &bulkRequest{
		Secret:    c.secret,
		Construct: construct,
	}
	resp, err := apiclient.PostJSON[bulkResponse](ctx, c.api, "bulk", body)
	if err != nil {
		return nil, fmt.Errorf("could not fetch bulk indicators for %s on %s: %w", symbol, interval, err)
	}

	ttl := c.ttl(interval)
	for _, d := range resp.Data {
		if len(d.Errors) > 0 || d.Result == nil {
			slog.Warn("taapi could not compute indicator", "symbol", symbol, "interval", interval, "indicator", d.Indicator, "errors", d.Errors)
			continue
		}
		req := &Request{Symbol: symbol, Indicator: d.ID, Interval: interval}
		c.cache.Set(req.key(), d.Result, ttl)
		result[d.ID] = d.Result
	}
	return result, nil
}
