// Copyright (c) 2025 BVK Chaitanya

// Package apiclient implements the JSON over HTTP client shared by all
// third-party API integrations. Every request goes through a rate limiter
// slot; throttled and temporarily unavailable responses are retried a bounded
// number of times.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
)

type Options struct {
	// BaseURL is prefixed to all request paths. Absolute request URLs are used
	// as is.
	BaseURL string

	// Timeout is the http client timeout for a single attempt.
	Timeout time.Duration

	// Header holds headers added to every request, eg: API keys.
	Header http.Header

	// Query holds query parameters added to every request.
	Query url.Values

	// MaxRetries is the number of times a request is retried on 429, 418,
	// 502, 503 and 504 responses.
	MaxRetries int

	// Limiter throttles all requests sent by the client. A private limiter
	// with default options is used when nil.
	Limiter *ratelimit.Limiter

	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if v.Timeout == 0 {
		v.Timeout = 30 * time.Second
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = 3
	}
}

func (v *Options) Check() error {
	if v.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %w", os.ErrInvalid)
	}
	if v.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %w", os.ErrInvalid)
	}
	if len(v.BaseURL) > 0 {
		if _, err := url.Parse(v.BaseURL); err != nil {
			return fmt.Errorf("base url is invalid: %w", err)
		}
	}
	return nil
}

type Client struct {
	name string

	opts Options

	client http.Client

	baseURL *url.URL
}

// HTTPError is returned when the service responds with an unsuccessful
// status code.
type HTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s returned http status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned http status %d: %s", e.Service, e.StatusCode, e.Body)
}

// StatusCode returns the http status code from an *HTTPError in the error
// chain or zero.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// New creates a client for the named service.
func New(name string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		name: name,
		opts: *opts,
		client: http.Client{
			Timeout: opts.Timeout,
		},
	}
	if len(opts.BaseURL) > 0 {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, err
		}
		c.baseURL = base
	}
	if c.opts.Limiter == nil {
		limiter, err := ratelimit.New(name, &ratelimit.Options{Metrics: opts.Metrics})
		if err != nil {
			return nil, err
		}
		c.opts.Limiter = limiter
	}
	return c, nil
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Limiter() *ratelimit.Limiter {
	return c.opts.Limiter
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("could not parse request path %q: %w", path, err)
	}
	values := u.Query()
	if c.baseURL != nil && !u.IsAbs() {
		u = c.baseURL.JoinPath(u.Path)
	}

	for k, vs := range c.opts.Query {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	for k, vs := range query {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()
	return u, nil
}

// GetJSON sends a GET request and decodes the JSON response into a new T.
func GetJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	resp := new(T)
	if err := c.Do(ctx, http.MethodGet, path, query, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// PostJSON sends the request as a JSON body and decodes the JSON response into
// a new T.
func PostJSON[T any](ctx context.Context, c *Client, path string, request any) (*T, error) {
	resp := new(T)
	if err := c.Do(ctx, http.MethodPost, path, nil, request, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Do sends a request with an optional JSON body and decodes a successful
// response into responsePtr when it is non-nil and the response has a body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, request, responsePtr any) error {
	addrURL, err := c.resolve(path, query)
	if err != nil {
		return err
	}

	var payload []byte
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("could not marshal %s request: %w", c.name, err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		slot, err := c.opts.Limiter.Acquire(ctx)
		if err != nil {
			return err
		}

		status, retryAfter, err := c.send(ctx, method, addrURL, payload, responsePtr)
		slot.Release(status, retryAfter)
		if err == nil {
			return nil
		}
		if !isRetryable(status) || attempt >= c.opts.MaxRetries {
			return err
		}

		slog.Warn("retrying api request", "service", c.name, "status", status, "attempt", attempt+1)
		if status >= 500 {
			if err := ctxutil.Sleep(ctx, time.Second); err != nil {
				return err
			}
		}
		// Throttled requests wait for the limiter penalty in the next Acquire.
	}
}

func isRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusTeapot, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) send(ctx context.Context, method string, addrURL *url.URL, payload []byte, responsePtr any) (int, time.Duration, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, addrURL.String(), body)
	if err != nil {
		return 0, 0, fmt.Errorf("could not create http request: %w", err)
	}
	for k, vs := range c.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not perform http request", "service", c.name, "method", method, "path", addrURL.Path, "err", err)
		}
		return 0, 0, err
	}
	defer resp.Body.Close()

	c.opts.Metrics.APIRequest(c.name, resp.StatusCode)
	slog.Debug("api request", "service", c.name, "method", method, "path", addrURL.Path, "status", resp.StatusCode, "latency", time.Since(s))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		herr := &HTTPError{
			Service:    c.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
		return resp.StatusCode, ParseRetryAfter(resp.Header.Get("Retry-After")), herr
	}

	if responsePtr == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(responsePtr); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, 0, nil
		}
		slog.Error("could not decode response to json", "service", c.name, "path", addrURL.Path, "err", err)
		return resp.StatusCode, 0, fmt.Errorf("could not decode %s response: %w", c.name, err)
	}
	return resp.StatusCode, 0, nil
}

// ParseRetryAfter parses a Retry-After header value which could be either a
// fractional number of seconds or an http date. Returns zero if the value is
// empty or invalid.
func ParseRetryAfter(s string) time.Duration {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v <= 0 {
			return 0
		}
		return time.Duration(v * float64(time.Second))
	}
	if t, err := http.ParseTime(s); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
