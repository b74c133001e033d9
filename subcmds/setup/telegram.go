// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/telegram"
	"github.com/bvkgo/kv/kvmemdb"
)

type Telegram struct {
	Flags

	ownerID  string
	adminID  string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Configures Telegram bot parameters"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user id")
	fset.StringVar(&c.adminID, "admin-id", "", "Administrator's telegram user id")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users configure notifications to their Telegram
account through a Telegram bot. Owner and admin users can also query and
control the daemon through the bot commands.

  $ cryptoalerts setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if err := prompt(&c.ownerID, "Telegram owner user id", false); err != nil {
		return err
	}
	if err := prompt(&c.botToken, "Telegram bot token", true); err != nil {
		return err
	}
	secrets, fpath, err := c.load()
	if err != nil {
		return err
	}
	secrets.Telegram = &telegram.Secrets{
		OwnerID:  c.ownerID,
		AdminID:  c.adminID,
		BotToken: c.botToken,
	}
	if err := secrets.Telegram.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		if err := waitKey("Start a chat with telegram bot and then press any key"); err != nil {
			return err
		}
		client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		ctxutil.Sleep(ctx, time.Second)
		if err := c.test(ctx, client); err != nil {
			return err
		}
	}
	return c.save(secrets, fpath)
}
