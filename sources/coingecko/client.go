// Copyright (c) 2025 BVK Chaitanya

// Package coingecko implements a client for the CoinGecko price aggregator
// API.
package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/cache"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/samber/lo"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

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
		v.CacheTTL = time.Minute
	}
}

type Price struct {
	ID        string
	Currency  string
	Price     float64
	Change24h float64
	MarketCap float64
}

type TrendingCoin struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	MarketCapRank int     `json:"market_cap_rank"`
	Score         int     `json:"score"`
	PriceBTC      float64 `json:"price_btc"`
}

type Client struct {
	opts Options

	api *apiclient.Client

	prices   *cache.Cache[string, map[string]*Price]
	trending *cache.Cache[string, []*TrendingCoin]
}

// New creates a client. Demo api key is optional for the public API.
func New(key string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	header := make(http.Header)
	if len(key) > 0 {
		header.Set("x-cg-demo-api-key", key)
	}
	api, err := apiclient.New("coingecko", &apiclient.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Header:  header,
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:     *opts,
		api:      api,
		prices:   cache.New[string, map[string]*Price](&cache.Options{Name: "coingecko", Metrics: opts.Metrics}),
		trending: cache.New[string, []*TrendingCoin](&cache.Options{Name: "coingecko-trending", Metrics: opts.Metrics}),
	}
	return c, nil
}

// SimplePrice returns current prices for the coin ids in the input currency,
// keyed by coin id. Coins unknown to CoinGecko are missing from the result.
func (c *Client) SimplePrice(ctx context.Context, ids []string, currency string) (map[string]*Price, error) {
	ids = lo.Uniq(lo.Map(ids, func(id string, _ int) string { return strings.ToLower(strings.TrimSpace(id)) }))
	ids = lo.Compact(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one coin id is required: %w", os.ErrInvalid)
	}
	slices.Sort(ids)
	currency = strings.ToLower(currency)

	fetch := func(ctx context.Context) (map[string]*Price, error) {
		query := url.Values{
			"ids":                 []string{strings.Join(ids, ",")},
			"vs_currencies":       []string{currency},
			"include_24hr_change": []string{"true"},
			"include_market_cap":  []string{"true"},
		}
		resp, err := apiclient.GetJSON[map[string]map[string]float64](ctx, c.api, "simple/price", query)
		if err != nil {
			return nil, fmt.Errorf("could not fetch coingecko prices: %w", err)
		}
		prices := make(map[string]*Price)
		for id, values := range *resp {
			price, ok := values[currency]
			if !ok {
				continue
			}
			prices[id] = &Price{
				ID:        id,
				Currency:  currency,
				Price:     price,
				Change24h: values[currency+"_24h_change"],
				MarketCap: values[currency+"_market_cap"],
			}
		}
		return prices, nil
	}
	key := currency + ":" + strings.Join(ids, ",")
	return c.prices.GetOrFetch(ctx, key, c.opts.CacheTTL, fetch)
}

// Trending returns the coins trending in searches over the last 24 hours.
func (c *Client) Trending(ctx context.Context) ([]*TrendingCoin, error) {
	fetch := func(ctx context.Context) ([]*TrendingCoin, error) {
		type Response struct {
			Coins []struct {
				Item *TrendingCoin `json:"item"`
			} `json:"coins"`
		}
		resp, err := apiclient.GetJSON[Response](ctx, c.api, "search/trending", nil)
		if err != nil {
			return nil, fmt.Errorf("could not fetch coingecko trending coins: %w", err)
		}
		var coins []*TrendingCoin
		for _, v := range resp.Coins {
			if v.Item != nil {
				coins = append(coins, v.Item)
			}
		}
		return coins, nil
	}
	return c.trending.GetOrFetch(ctx, "trending", c.opts.CacheTTL, fetch)
}
