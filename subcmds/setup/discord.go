// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/discord"
)

type Discord struct {
	Flags

	webhookURL string
}

func (c *Discord) Purpose() string {
	return "Configures the Discord webhook for notifications"
}

func (c *Discord) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("discord", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	fset.StringVar(&c.webhookURL, "webhook-url", "", "Discord channel webhook url")
	return "discord", fset, cli.CmdFunc(c.run)
}

func (c *Discord) Description() string {
	return `

Command "discord" saves a Discord channel webhook url into the secrets file. A
webhook can be created from the channel's Integrations settings.

  $ cryptoalerts setup discord --webhook-url=https://discord.com/api/webhooks/...

`
}

func (c *Discord) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if err := prompt(&c.webhookURL, "Discord webhook url", true); err != nil {
		return err
	}
	secrets, fpath, err := c.load()
	if err != nil {
		return err
	}
	secrets.Discord = &config.DiscordSecrets{WebhookURL: c.webhookURL}

	client, err := discord.New(c.webhookURL, nil)
	if err != nil {
		return err
	}
	if err := c.test(ctx, client); err != nil {
		return err
	}
	return c.save(secrets, fpath)
}
