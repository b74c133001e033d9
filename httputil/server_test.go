// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Name string
}

type echoResponse struct {
	Greeting string
}

func echo(ctx context.Context, req *echoRequest) (*echoResponse, error) {
	switch req.Name {
	case "":
		return nil, fmt.Errorf("name cannot be empty: %w", os.ErrInvalid)
	case "ghost":
		return nil, fmt.Errorf("no such user: %w", os.ErrNotExist)
	}
	return &echoResponse{Greeting: "hello " + req.Name}, nil
}

func TestServer(t *testing.T) {
	ctx := context.Background()
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Close()

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	id, err := s.StartTCP(ctx, addr)
	require.NoError(t, err)
	assert.NotZero(t, addr.Port)
	defer s.Stop(id)

	s.AddHandler("/api/echo", JSONHandler(echo))

	post := func(body string) (int, string) {
		u := fmt.Sprintf("http://%s/api/echo", addr)
		resp, err := http.Post(u, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, strings.TrimSpace(string(data))
	}

	code, body := post(`{"Name":"bob"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"Greeting":"hello bob"}`, body)

	code, _ = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(`{"Name":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/echo", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	assert.True(t, s.RemoveHandler("/api/echo"))
	assert.False(t, s.RemoveHandler("/api/echo"))
	code, _ = post(`{"Name":"bob"}`)
	assert.Equal(t, http.StatusNotFound, code)

	assert.ErrorIs(t, s.Stop(12345), os.ErrNotExist)
}
