// Copyright (c) 2025 BVK Chaitanya

package goplus

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

const honeypot = "0x00000000000000000000000000000000000000aa"

func TestTokenSecurity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token_security/56", r.URL.Path)
		w.Write([]byte(`{"code":1,"message":"OK","result":{"` + honeypot + `":{
			"token_name":"Scam","token_symbol":"SCAM","holder_count":"12",
			"buy_tax":"0.05","sell_tax":"0.35","is_honeypot":"1","is_open_source":"0",
			"is_mintable":"1","hidden_owner":"0","cannot_sell_all":"0"}}}`))
	}))
	defer srv.Close()

	limiter, err := ratelimit.New("goplus", &ratelimit.Options{MinInterval: time.Millisecond})
	require.NoError(t, err)
	c, err := New(&Options{BaseURL: srv.URL, Limiter: limiter})
	require.NoError(t, err)

	sec, err := c.TokenSecurity(context.Background(), "56", "0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)
	assert.Equal(t, "SCAM", sec.TokenSymbol)
	assert.True(t, sec.Critical())
	assert.Equal(t, []string{"honeypot", "contract source is not verified", "mintable", "sell tax 35.0%"}, sec.Risks())

	_, err = c.TokenSecurity(context.Background(), "56", "0xbb")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
