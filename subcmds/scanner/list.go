// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"github.com/olekukonko/tablewriter"
)

type List struct {
	cmdutil.ClientFlags
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints the scanners with their schedules and last run status"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	resp, err := cmdutil.Post[api.ScannersListResponse](ctx, &c.ClientFlags, api.ScannersListPath, &api.ScannersListRequest{})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Schedule", "State", "Last Run", "Alerts", "Next Run", "Last Error"})
	for _, s := range resp.Scanners {
		state := "active"
		if s.Running {
			state = "running"
		} else if s.Paused {
			state = "paused"
		}
		next := formatTime(s.Next)
		if s.Paused {
			next = "-"
		}
		table.Append([]string{
			s.Name,
			s.Schedule,
			state,
			formatTime(s.LastRunAt),
			fmt.Sprintf("%d", s.LastAlerts),
			next,
			s.LastError,
		})
	}
	table.Render()
	return nil
}
