// Copyright (c) 2025 BVK Chaitanya

package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingResponse struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

func newTestClient(t *testing.T, baseURL string) *Client {
	limiter, err := ratelimit.New("test", &ratelimit.Options{
		MinInterval: time.Millisecond,
		PenaltyMin:  5 * time.Millisecond,
		PenaltyMax:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	c, err := New("test", &Options{
		BaseURL: baseURL,
		Header:  http.Header{"X-Api-Key": []string{"secret"}},
		Query:   url.Values{"key": []string{"k1"}},
		Limiter: limiter,
	})
	require.NoError(t, err)
	return c
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rsi", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		assert.Equal(t, "BTC/USDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTC/USDT","value":55.5}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/v1")
	resp, err := GetJSON[pingResponse](context.Background(), c, "rsi", url.Values{"symbol": []string{"BTC/USDT"}})
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", resp.Symbol)
	assert.Equal(t, 55.5, resp.Value)
}

func TestRetryOnTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"value":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := GetJSON[pingResponse](context.Background(), c, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Value)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 0, c.Limiter().Throttled(), "success must reset throttling")
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := GetJSON[pingResponse](context.Background(), c, "/", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, 4, c.Limiter().Throttled())
}

func TestNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := GetJSON[pingResponse](context.Background(), c, "/", nil)

	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusUnauthorized, herr.StatusCode)
	assert.Equal(t, "invalid api key", herr.Body)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPostJSONNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, "")
	err := c.Do(context.Background(), http.MethodPost, srv.URL+"/hook", nil, map[string]string{"content": "hi"}, nil)
	require.NoError(t, err)
}

func TestDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := GetJSON[pingResponse](context.Background(), c, "/", nil)
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseRetryAfter("2"))
	assert.Equal(t, 1500*time.Millisecond, ParseRetryAfter("1.5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	assert.Greater(t, ParseRetryAfter(future), 58*time.Minute)
}
