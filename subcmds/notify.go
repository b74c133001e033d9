// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
)

type Notify struct {
	cmdutil.ClientFlags
}

func (c *Notify) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("notify", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "notify", fset, cli.CmdFunc(c.run)
}

func (c *Notify) Purpose() string {
	return "Sends a text message to all notifiers of the daemon"
}

func (c *Notify) run(ctx context.Context, args []string) error {
	text := strings.Join(args, " ")
	if len(strings.TrimSpace(text)) == 0 {
		return fmt.Errorf("needs message text as arguments")
	}
	req := &api.NotifyRequest{Text: text}
	resp, err := cmdutil.Post[api.NotifyResponse](ctx, &c.ClientFlags, api.NotifyPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("sent to %s\n", strings.Join(resp.Notifiers, ", "))
	return nil
}
