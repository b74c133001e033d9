// Copyright (c) 2025 BVK Chaitanya

// Package lunarcrush implements a client for the LunarCrush social analytics
// API. Galaxy Score, AltRank and the social metrics are treated as opaque
// numbers.
package lunarcrush

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/cache"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
)

const DefaultBaseURL = "https://lunarcrush.com/api4/public/coins"

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if len(v.BaseURL) == 0 {
		v.BaseURL = DefaultBaseURL
	}
	if v.Timeout == 0 {
		v.Timeout = 30 * time.Second
	}
	if v.CacheTTL == 0 {
		v.CacheTTL = 10 * time.Minute
	}
}

type CoinMetrics struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	Price            float64 `json:"price"`
	PercentChange24h float64 `json:"percent_change_24h"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`

	GalaxyScore         float64 `json:"galaxy_score"`
	GalaxyScorePrevious float64 `json:"galaxy_score_previous"`
	AltRank             int     `json:"alt_rank"`
	AltRankPrevious     int     `json:"alt_rank_previous"`
	Sentiment           float64 `json:"sentiment"`
	SocialDominance     float64 `json:"social_dominance"`
	Interactions24h     float64 `json:"interactions_24h"`
}

// GalaxyScoreChange returns the change in the Galaxy Score since the previous
// measurement, which is used as the social momentum signal.
func (m *CoinMetrics) GalaxyScoreChange() float64 {
	if m.GalaxyScorePrevious == 0 {
		return 0
	}
	return m.GalaxyScore - m.GalaxyScorePrevious
}

type Client struct {
	opts Options

	api *apiclient.Client

	coins *cache.Cache[string, *CoinMetrics]
	lists *cache.Cache[string, []*CoinMetrics]
}

func New(key string, opts *Options) (*Client, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("lunarcrush api key cannot be empty: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	api, err := apiclient.New("lunarcrush", &apiclient.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Header:  http.Header{"Authorization": []string{"Bearer " + key}},
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:  *opts,
		api:   api,
		coins: cache.New[string, *CoinMetrics](&cache.Options{Name: "lunarcrush", Metrics: opts.Metrics}),
		lists: cache.New[string, []*CoinMetrics](&cache.Options{Name: "lunarcrush-list", Metrics: opts.Metrics}),
	}
	return c, nil
}

// Coin returns the latest metrics for a coin symbol, eg: "BTC".
func (c *Client) Coin(ctx context.Context, symbol string) (*CoinMetrics, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) == 0 {
		return nil, fmt.Errorf("symbol cannot be empty: %w", os.ErrInvalid)
	}

	fetch := func(ctx context.Context) (*CoinMetrics, error) {
		type Response struct {
			Data *CoinMetrics `json:"data"`
		}
		resp, err := apiclient.GetJSON[Response](ctx, c.api, url.PathEscape(symbol)+"/v1", nil)
		if err != nil {
			return nil, fmt.Errorf("could not fetch lunarcrush metrics for %s: %w", symbol, err)
		}
		if resp.Data == nil {
			return nil, fmt.Errorf("lunarcrush has no data for %s: %w", symbol, os.ErrNotExist)
		}
		return resp.Data, nil
	}
	return c.coins.GetOrFetch(ctx, symbol, c.opts.CacheTTL, fetch)
}

// TopCoins returns the coins list sorted by the given metric, eg:
// "galaxy_score" or "alt_rank".
func (c *Client) TopCoins(ctx context.Context, sort string, limit int) ([]*CoinMetrics, error) {
	if limit <= 0 {
		limit = 20
	}
	key := sort + "/" + strconv.Itoa(limit)

	fetch := func(ctx context.Context) ([]*CoinMetrics, error) {
		type Response struct {
			Data []*CoinMetrics `json:"data"`
		}
		query := url.Values{
			"sort":  []string{sort},
			"limit": []string{strconv.Itoa(limit)},
		}
		if sort == "alt_rank" {
			query.Set("desc", "false")
		}
		resp, err := apiclient.GetJSON[Response](ctx, c.api, "list/v2", query)
		if err != nil {
			return nil, fmt.Errorf("could not fetch lunarcrush coins list: %w", err)
		}
		return resp.Data, nil
	}
	return c.lists.GetOrFetch(ctx, key, c.opts.CacheTTL, fetch)
}
