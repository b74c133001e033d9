// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/pushover"
)

type Pushover struct {
	Flags

	appKey  string
	userKey string
}

func (c *Pushover) Purpose() string {
	return "Configures Pushover keys for mobile notifications"
}

func (c *Pushover) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	fset.StringVar(&c.appKey, "app-key", "", "Pushover application key")
	fset.StringVar(&c.userKey, "user-key", "", "Pushover user key")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *Pushover) Description() string {
	return `

Command "pushover" saves Pushover keys into the secrets file to receive
notifications on mobile phones.

  $ cryptoalerts setup pushover --app-key=awja5ue...ito7svf --user-key=uscjs2...tvp4kv

`
}

func (c *Pushover) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if err := prompt(&c.appKey, "Pushover application key", true); err != nil {
		return err
	}
	if err := prompt(&c.userKey, "Pushover user key", true); err != nil {
		return err
	}
	secrets, fpath, err := c.load()
	if err != nil {
		return err
	}
	secrets.Pushover = &pushover.Keys{
		ApplicationKey: c.appKey,
		UserKey:        c.userKey,
	}

	client, err := pushover.New(secrets.Pushover, nil)
	if err != nil {
		return err
	}
	if err := c.test(ctx, client); err != nil {
		return err
	}
	return c.save(secrets, fpath)
}
