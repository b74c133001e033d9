// Copyright (c) 2025 BVK Chaitanya

// Package cryptopanic implements a client for the CryptoPanic news
// aggregator API.
package cryptopanic

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/samber/lo"
)

const DefaultBaseURL = "https://cryptopanic.com/api/v1"

type Options struct {
	BaseURL string
	Timeout time.Duration

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
}

type Currency struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type Votes struct {
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Important int `json:"important"`
	Liked     int `json:"liked"`
	Disliked  int `json:"disliked"`
	Toxic     int `json:"toxic"`
}

// Sentiment returns positive minus negative reactions.
func (v *Votes) Sentiment() int {
	return v.Positive + v.Liked - v.Negative - v.Disliked - v.Toxic
}

type Post struct {
	ID          int64       `json:"id"`
	Kind        string      `json:"kind"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Domain      string      `json:"domain"`
	PublishedAt time.Time   `json:"published_at"`
	Currencies  []*Currency `json:"currencies"`
	Votes       *Votes      `json:"votes"`
	Source      struct {
		Title  string `json:"title"`
		Domain string `json:"domain"`
	} `json:"source"`
}

// Codes returns the currency codes tagged on the post.
func (p *Post) Codes() []string {
	return lo.Map(p.Currencies, func(c *Currency, _ int) string { return c.Code })
}

type PostsRequest struct {
	// Currencies filters posts by currency codes, eg: "BTC".
	Currencies []string

	// Filter is one of "rising", "hot", "bullish", "bearish", "important",
	// "saved" or "lol". Empty returns all posts.
	Filter string

	// Kind is one of "news" or "media". Empty returns all kinds.
	Kind string
}

type Client struct {
	opts Options

	api *apiclient.Client
}

func New(token string, opts *Options) (*Client, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("cryptopanic auth token cannot be empty: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	api, err := apiclient.New("cryptopanic", &apiclient.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Query: url.Values{
			"auth_token": []string{token},
			"public":     []string{"true"},
		},
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Client{opts: *opts, api: api}, nil
}

// Posts returns the first page of posts, newest first. News is not cached;
// callers track the newest post they have seen.
func (c *Client) Posts(ctx context.Context, req *PostsRequest) ([]*Post, error) {
	query := make(url.Values)
	if req != nil {
		if codes := lo.Uniq(lo.Compact(req.Currencies)); len(codes) > 0 {
			query.Set("currencies", strings.ToUpper(strings.Join(codes, ",")))
		}
		if len(req.Filter) > 0 {
			query.Set("filter", req.Filter)
		}
		if len(req.Kind) > 0 {
			query.Set("kind", req.Kind)
		}
	}

	type Response struct {
		Count   int     `json:"count"`
		Results []*Post `json:"results"`
	}
	// Trailing slash is required by the API.
	resp, err := apiclient.GetJSON[Response](ctx, c.api, "posts/", query)
	if err != nil {
		return nil, fmt.Errorf("could not fetch cryptopanic posts: %w", err)
	}
	return resp.Results, nil
}
