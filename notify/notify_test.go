// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name     string
	limit    int
	failures int
	messages []string
}

func (r *recorder) Name() string       { return r.name }
func (r *recorder) MaxMessageLen() int { return r.limit }

func (r *recorder) SendMessage(ctx context.Context, at time.Time, text string) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("unavailable")
	}
	r.messages = append(r.messages, text)
	return nil
}

func TestSendSplitsLongMessages(t *testing.T) {
	r := &recorder{name: "r", limit: 50}

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, strings.Repeat("a", 20))
	}
	require.NoError(t, Send(context.Background(), r, time.Now(), strings.Join(lines, "\n")))

	assert.Len(t, r.messages, 5)
	for _, m := range r.messages {
		assert.LessOrEqual(t, len(m), 50)
	}
}

func TestBroadcast(t *testing.T) {
	ok := &recorder{name: "ok"}
	bad := &recorder{name: "bad", failures: 1}
	m := NewMulti(nil, ok, bad)

	assert.Equal(t, []string{"ok", "bad"}, m.Names())

	sent, err := m.Broadcast(context.Background(), time.Now(), "hello")
	assert.Error(t, err)
	assert.Equal(t, []string{"ok"}, sent)
	assert.Equal(t, []string{"hello"}, ok.messages)

	sent, err = m.Broadcast(context.Background(), time.Now(), "again")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "bad"}, sent)
}

func TestWriter(t *testing.T) {
	var sb strings.Builder
	w := NewWriter("stdout", &sb)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, Send(context.Background(), w, at, strings.Repeat("line\n", 1000)))
	assert.Equal(t, 1, strings.Count(sb.String(), "--- 2025-03-01T10:00:00Z"))
}
