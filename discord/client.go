// Copyright (c) 2025 BVK Chaitanya

// Package discord implements a notifier that posts messages to a Discord
// channel webhook.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
)

// MaxContentLen is the Discord limit on the message content.
const MaxContentLen = 2000

type Options struct {
	// Username overrides the webhook's default user name.
	Username string

	// AvatarURL overrides the webhook's default avatar.
	AvatarURL string

	Timeout time.Duration

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if len(v.Username) == 0 {
		v.Username = "cryptoalerts"
	}
	if v.Timeout == 0 {
		v.Timeout = 10 * time.Second
	}
}

type Client struct {
	opts Options

	webhookURL string

	api *apiclient.Client
}

type webhookMessage struct {
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

func New(webhookURL string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	u, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse discord webhook url: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || len(u.Host) == 0 {
		return nil, fmt.Errorf("discord webhook url must be an absolute http(s) url: %w", os.ErrInvalid)
	}

	api, err := apiclient.New("discord", &apiclient.Options{
		Timeout: opts.Timeout,
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts:       *opts,
		webhookURL: webhookURL,
		api:        api,
	}
	return c, nil
}

func (c *Client) Name() string {
	return "discord"
}

func (c *Client) MaxMessageLen() int {
	return MaxContentLen
}

// SendMessage posts the text as the message content. Mentions in the text
// are never resolved, so that forwarded content cannot ping the channel.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	if n := utf8.RuneCountInString(text); n > MaxContentLen {
		return fmt.Errorf("message with %d characters exceeds discord limit: %w", n, os.ErrInvalid)
	}
	msg := &webhookMessage{
		Content:         text,
		Username:        c.opts.Username,
		AvatarURL:       c.opts.AvatarURL,
		AllowedMentions: &allowedMentions{Parse: []string{}},
	}
	if err := c.api.Do(ctx, http.MethodPost, c.webhookURL, nil, msg, nil); err != nil {
		return fmt.Errorf("could not post to discord webhook: %w", err)
	}
	return nil
}
