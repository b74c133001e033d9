// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/olekukonko/tablewriter"
)

// Show prints the configured services with the secret values masked.
type Show struct {
	Flags
}

func (c *Show) Purpose() string {
	return "Prints the configured api keys and chat services"
}

func (c *Show) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("show", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	return "show", fset, cli.CmdFunc(c.run)
}

func (c *Show) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	secrets, err := c.LoadSecrets()
	if err != nil {
		return err
	}

	var rows [][]string
	add := func(name, value string) {
		if len(value) != 0 {
			rows = append(rows, []string{name, mask(value)})
		}
	}
	add("taapi", secrets.TAAPI)
	add("lunarcrush", secrets.LunarCrush)
	add("coingecko", secrets.CoinGecko)
	add("cryptopanic", secrets.CryptoPanic)
	if v := secrets.Binance; v != nil {
		add("binance-key", v.APIKey)
		add("binance-secret", v.SecretKey)
	}
	if v := secrets.Discord; v != nil {
		add("discord", v.WebhookURL)
	}
	if v := secrets.Slack; v != nil {
		add("slack-webhook", v.WebhookURL)
		add("slack-bot-token", v.BotToken)
		if len(v.Channel) != 0 {
			rows = append(rows, []string{"slack-channel", v.Channel})
		}
	}
	if v := secrets.Pushover; v != nil {
		add("pushover-app", v.ApplicationKey)
		add("pushover-user", v.UserKey)
	}
	if v := secrets.Telegram; v != nil {
		add("telegram-token", v.BotToken)
		rows = append(rows, []string{"telegram-owner", v.OwnerID})
	}
	if len(rows) == 0 {
		fmt.Println("No secrets are configured.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Value"})
	table.AppendBulk(rows)
	table.Render()
	return nil
}
