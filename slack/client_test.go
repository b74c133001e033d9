// Copyright (c) 2025 BVK Chaitanya

package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter(t *testing.T) *ratelimit.Limiter {
	l, err := ratelimit.New("slack", &ratelimit.Options{
		MinInterval: time.Millisecond,
		PenaltyMin:  time.Millisecond,
		PenaltyMax:  time.Millisecond,
	})
	require.NoError(t, err)
	return l
}

func TestWebhook(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(&Secrets{WebhookURL: srv.URL}, &Options{Username: "bot", Limiter: testLimiter(t)})
	require.NoError(t, err)
	require.NoError(t, c.SendMessage(context.Background(), time.Now(), "BTC pumped"))

	assert.Equal(t, "BTC pumped", got["text"])
	assert.Equal(t, "bot", got["username"])
}

func TestWebhookRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := testLimiter(t)
	c, err := New(&Secrets{WebhookURL: srv.URL}, &Options{Limiter: limiter})
	require.NoError(t, err)

	err = c.SendMessage(context.Background(), time.Now(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, limiter.Throttled())
	assert.Greater(t, time.Until(limiter.PenaltyUntil()), 2*time.Second)
}

func TestBotToken(t *testing.T) {
	var channel, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		channel, text = r.FormValue("channel"), r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.2"}`))
	}))
	defer srv.Close()

	secrets := &Secrets{BotToken: "xoxb-test", Channel: "C1"}
	c, err := New(secrets, &Options{APIURL: srv.URL + "/", Limiter: testLimiter(t)})
	require.NoError(t, err)
	require.NoError(t, c.SendMessage(context.Background(), time.Now(), "hello"))

	assert.Equal(t, "C1", channel)
	assert.Equal(t, "hello", text)
}

func TestSecretsCheck(t *testing.T) {
	assert.ErrorIs(t, (&Secrets{}).Check(), os.ErrInvalid)
	assert.ErrorIs(t, (&Secrets{BotToken: "x"}).Check(), os.ErrInvalid)
	assert.NoError(t, (&Secrets{BotToken: "x", Channel: "c"}).Check())
}
