// Copyright (c) 2025 BVK Chaitanya

// Package slack implements a notifier that posts messages to Slack either
// through an incoming webhook or through the chat.postMessage API with a bot
// token.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/slack-go/slack"
)

// MaxTextLen is the limit Slack recommends for the message text.
const MaxTextLen = 4000

type Secrets struct {
	// WebhookURL is an incoming webhook url. Used when set.
	WebhookURL string `json:"webhook_url"`

	// BotToken and Channel are used to post with chat.postMessage when
	// WebhookURL is empty.
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

func (v *Secrets) Check() error {
	if len(v.WebhookURL) == 0 && len(v.BotToken) == 0 {
		return fmt.Errorf("one of webhook url or bot token is required: %w", os.ErrInvalid)
	}
	if len(v.WebhookURL) == 0 && len(v.Channel) == 0 {
		return fmt.Errorf("channel is required with the bot token: %w", os.ErrInvalid)
	}
	return nil
}

type Options struct {
	Username  string
	IconEmoji string

	Timeout time.Duration

	// APIURL overrides the slack api endpoint for the bot token mode.
	APIURL string

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
	opts    Options
	secrets Secrets

	httpClient *http.Client

	api *slack.Client
}

func New(secrets *Secrets, opts *Options) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	if opts.Limiter == nil {
		limiter, err := ratelimit.New("slack", &ratelimit.Options{Metrics: opts.Metrics})
		if err != nil {
			return nil, err
		}
		opts.Limiter = limiter
	}

	c := &Client{
		opts:       *opts,
		secrets:    *secrets,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
	if len(secrets.WebhookURL) == 0 {
		options := []slack.Option{slack.OptionHTTPClient(c.httpClient)}
		if len(opts.APIURL) > 0 {
			options = append(options, slack.OptionAPIURL(opts.APIURL))
		}
		c.api = slack.New(secrets.BotToken, options...)
	}
	return c, nil
}

func (c *Client) Name() string {
	return "slack"
}

func (c *Client) MaxMessageLen() int {
	return MaxTextLen
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	slot, err := c.opts.Limiter.Acquire(ctx)
	if err != nil {
		return err
	}

	if c.api == nil {
		msg := &slack.WebhookMessage{
			Username:  c.opts.Username,
			IconEmoji: c.opts.IconEmoji,
			Text:      text,
		}
		err = slack.PostWebhookCustomHTTPContext(ctx, c.secrets.WebhookURL, c.httpClient, msg)
	} else {
		_, _, err = c.api.PostMessageContext(ctx, c.secrets.Channel,
			slack.MsgOptionText(text, false),
			slack.MsgOptionUsername(c.opts.Username),
			slack.MsgOptionIconEmoji(c.opts.IconEmoji))
	}

	status, retryAfter := responseStatus(err)
	slot.Release(status, retryAfter)
	c.opts.Metrics.APIRequest("slack", status)
	if err != nil {
		return fmt.Errorf("could not post message to slack: %w", err)
	}
	return nil
}

// responseStatus recovers the http status from slack-go errors. Errors
// without a known status are reported as transport failures.
func responseStatus(err error) (int, time.Duration) {
	if err == nil {
		return http.StatusOK, 0
	}
	var rerr *slack.RateLimitedError
	if errors.As(err, &rerr) {
		return http.StatusTooManyRequests, rerr.RetryAfter
	}
	var serr slack.StatusCodeError
	if errors.As(err, &serr) {
		return serr.Code, 0
	}
	return 0, 0
}
