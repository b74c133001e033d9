// Copyright (c) 2025 BVK Chaitanya

package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhook struct {
	mu       sync.Mutex
	messages []webhookMessage
	throttle int
}

func (f *fakeWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.throttle > 0 {
		f.throttle--
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"You are being rate limited.","retry_after":0.01,"global":false}`))
		return
	}

	var msg webhookMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.messages = append(f.messages, msg)
	w.WriteHeader(http.StatusNoContent)
}

func newTestClient(t *testing.T, url string) *Client {
	limiter, err := ratelimit.New("discord", &ratelimit.Options{
		MinInterval: time.Millisecond,
		PenaltyMin:  time.Millisecond,
		PenaltyMax:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	c, err := New(url, &Options{Username: "alerts-bot", Limiter: limiter})
	require.NoError(t, err)
	return c
}

func TestSendMessage(t *testing.T) {
	hook := &fakeWebhook{throttle: 1}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/webhooks/1/token")
	require.NoError(t, c.SendMessage(context.Background(), time.Now(), "hello @everyone"))

	require.Len(t, hook.messages, 1)
	msg := hook.messages[0]
	assert.Equal(t, "hello @everyone", msg.Content)
	assert.Equal(t, "alerts-bot", msg.Username)
	require.NotNil(t, msg.AllowedMentions)
	assert.Empty(t, msg.AllowedMentions.Parse)
}

func TestLongReportIsSplit(t *testing.T) {
	hook := &fakeWebhook{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, strings.Repeat("x", 60))
	}
	report := strings.Join(lines, "\n")
	require.NoError(t, notify.Send(context.Background(), c, time.Now(), report))

	require.Len(t, hook.messages, 4)
	var total int
	for _, m := range hook.messages {
		assert.LessOrEqual(t, len(m.Content), MaxContentLen)
		total += strings.Count(m.Content, "x")
	}
	assert.Equal(t, 6000, total)
}

func TestInvalid(t *testing.T) {
	_, err := New("discord.com/api/webhooks/1", nil)
	assert.ErrorIs(t, err, os.ErrInvalid)

	c := newTestClient(t, "https://discord.invalid/hook")
	err = c.SendMessage(context.Background(), time.Now(), strings.Repeat("x", MaxContentLen+1))
	assert.ErrorIs(t, err, os.ErrInvalid)
}
