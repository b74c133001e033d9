// Copyright (c) 2025 BVK Chaitanya

package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplePrice(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/simple/price":
			assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
			assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
			w.Write([]byte(`{"bitcoin":{"usd":65000,"usd_24h_change":-2.5,"usd_market_cap":1.2e12},"ethereum":{"usd":3500,"usd_24h_change":1.25}}`))
		case "/search/trending":
			w.Write([]byte(`{"coins":[{"item":{"id":"pepe","name":"Pepe","symbol":"PEPE","market_cap_rank":30,"score":0}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	limiter, err := ratelimit.New("coingecko", &ratelimit.Options{MinInterval: time.Millisecond})
	require.NoError(t, err)
	c, err := New("", &Options{BaseURL: srv.URL, Limiter: limiter})
	require.NoError(t, err)

	ctx := context.Background()
	prices, err := c.SimplePrice(ctx, []string{"Ethereum", "bitcoin", "bitcoin", ""}, "USD")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 65000.0, prices["bitcoin"].Price)
	assert.Equal(t, -2.5, prices["bitcoin"].Change24h)
	assert.Equal(t, 1.25, prices["ethereum"].Change24h)

	// Same set of ids in another order is served from the cache.
	_, err = c.SimplePrice(ctx, []string{"bitcoin", "ethereum"}, "usd")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	trending, err := c.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, "PEPE", trending[0].Symbol)

	_, err = c.SimplePrice(ctx, nil, "usd")
	assert.ErrorIs(t, err, os.ErrInvalid)
}
