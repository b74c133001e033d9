// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/slack"
)

type Slack struct {
	Flags

	webhookURL string
	botToken   string
	channel    string
}

func (c *Slack) Purpose() string {
	return "Configures the Slack webhook or bot token for notifications"
}

func (c *Slack) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("slack", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	fset.StringVar(&c.webhookURL, "webhook-url", "", "Slack incoming webhook url")
	fset.StringVar(&c.botToken, "bot-token", "", "Slack bot token; used when webhook url is empty")
	fset.StringVar(&c.channel, "channel", "", "Slack channel for the bot token")
	return "slack", fset, cli.CmdFunc(c.run)
}

func (c *Slack) Description() string {
	return `

Command "slack" saves Slack credentials into the secrets file. Either an
incoming webhook url or a bot token with a channel name is required.

  $ cryptoalerts setup slack --webhook-url=https://hooks.slack.com/services/...
  $ cryptoalerts setup slack --bot-token=xoxb-... --channel=#alerts

`
}

func (c *Slack) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if len(c.botToken) == 0 {
		if err := prompt(&c.webhookURL, "Slack webhook url", true); err != nil {
			return err
		}
	}
	secrets, fpath, err := c.load()
	if err != nil {
		return err
	}
	secrets.Slack = &slack.Secrets{
		WebhookURL: c.webhookURL,
		BotToken:   c.botToken,
		Channel:    c.channel,
	}

	client, err := slack.New(secrets.Slack, nil)
	if err != nil {
		return err
	}
	if err := c.test(ctx, client); err != nil {
		return err
	}
	return c.save(secrets, fpath)
}
