// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
)

type Run struct {
	cmdutil.ClientFlags

	dryRun bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.dryRun, "dry-run", false, "when true, alerts are printed but not sent")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs a scanner immediately in the daemon"
}

func (c *Run) Description() string {
	return `

Command "run" runs a scanner in the daemon out of it's schedule and sends the
new alerts to the notifiers. Alerts within the cooldown period of an earlier
delivery are suppressed. Paused scanners can also be run with this command.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (scanner name) argument")
	}
	req := &api.ScannersRunRequest{
		Name:   args[0],
		DryRun: c.dryRun,
	}
	resp, err := cmdutil.Post[api.ScannersRunResponse](ctx, &c.ClientFlags, api.ScannersRunPath, req)
	if err != nil {
		return err
	}
	for _, a := range resp.Alerts {
		fmt.Printf("%s\n\n", a.Text)
	}
	if c.dryRun {
		fmt.Printf("%d alerts\n", len(resp.Alerts))
		return nil
	}
	fmt.Printf("%d alerts, %d sent, %d suppressed", len(resp.Alerts), resp.Sent, resp.Suppressed)
	if len(resp.Notifiers) > 0 {
		fmt.Printf(" (notifiers: %s)", strings.Join(resp.Notifiers, ", "))
	}
	fmt.Println()
	return nil
}
