// Copyright (c) 2025 BVK Chaitanya

package lunarcrush

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/coins/SOL/v1":
			w.Write([]byte(`{"data":{"id":3,"symbol":"SOL","name":"Solana","price":150.5,"galaxy_score":72,"galaxy_score_previous":60,"alt_rank":4,"sentiment":81}}`))
		case "/coins/NONE/v1":
			w.Write([]byte(`{}`))
		case "/coins/list/v2":
			assert.Equal(t, "galaxy_score", r.URL.Query().Get("sort"))
			w.Write([]byte(`{"data":[{"symbol":"SOL","galaxy_score":72},{"symbol":"BTC","galaxy_score":70}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	limiter, err := ratelimit.New("lunarcrush", &ratelimit.Options{MinInterval: time.Millisecond})
	require.NoError(t, err)
	c, err := New("key", &Options{BaseURL: srv.URL + "/coins", Limiter: limiter})
	require.NoError(t, err)

	ctx := context.Background()
	m, err := c.Coin(ctx, "sol")
	require.NoError(t, err)
	assert.Equal(t, "Solana", m.Name)
	assert.Equal(t, 72.0, m.GalaxyScore)
	assert.Equal(t, 4, m.AltRank)
	assert.Equal(t, 12.0, m.GalaxyScoreChange())

	_, err = c.Coin(ctx, "none")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	top, err := c.TopCoins(ctx, "galaxy_score", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "SOL", top[0].Symbol)
}
