// Copyright (c) 2025 BVK Chaitanya

// Package pushover implements a notifier that sends push notifications
// through the Pushover messages API.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
)

// MaxMessageLen is the Pushover limit on the message body.
const MaxMessageLen = 1024

const DefaultAPIURL = "https://api.pushover.net/1/messages.json"

type Keys struct {
	ApplicationKey string `json:"application_key"`
	UserKey        string `json:"user_key"`
}

func (v *Keys) Check() error {
	if len(v.ApplicationKey) == 0 {
		return fmt.Errorf("application key cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.UserKey) == 0 {
		return fmt.Errorf("user key cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type Options struct {
	// APIURL overrides the messages endpoint.
	APIURL string

	// Title is set as the notification title.
	Title string

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if len(v.APIURL) == 0 {
		v.APIURL = DefaultAPIURL
	}
}

type Client struct {
	opts Options

	token string
	user  string

	api *apiclient.Client
}

func New(keys *Keys, opts *Options) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	api, err := apiclient.New("pushover", &apiclient.Options{
		Timeout: 10 * time.Second,
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:  *opts,
		token: keys.ApplicationKey,
		user:  keys.UserKey,
		api:   api,
	}
	return c, nil
}

func (c *Client) Name() string {
	return "pushover"
}

func (c *Client) MaxMessageLen() int {
	return MaxMessageLen
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	if n := utf8.RuneCountInString(msg); n > MaxMessageLen {
		return fmt.Errorf("message with %d characters exceeds pushover limit: %w", n, os.ErrInvalid)
	}

	type Message struct {
		Token     string `json:"token"`
		User      string `json:"user"`
		Title     string `json:"title,omitempty"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}
	m := &Message{
		Token:     c.token,
		User:      c.user,
		Title:     c.opts.Title,
		Timestamp: at.Unix(),
		Message:   msg,
	}

	type Response struct {
		Status  int      `json:"status"`
		Request string   `json:"request"`
		Errors  []string `json:"errors"`
	}
	r := new(Response)
	if err := c.api.Do(ctx, http.MethodPost, c.opts.APIURL, nil, m, r); err != nil {
		return fmt.Errorf("could not post message to pushover: %w", err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with error: %w", errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with zero response-status code (%#v)", *r)
	}
	return nil
}
