// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"github.com/olekukonko/tablewriter"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the daemon process and rate limiter status"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, &api.StatusRequest{})
	if err != nil {
		return err
	}

	fmt.Printf("PID: %d\n", resp.PID)
	fmt.Printf("Started: %s (up %s)\n", resp.StartTime.Format(time.RFC3339), resp.Uptime.Round(time.Second))
	fmt.Printf("Memory: %.1f MiB RSS\n", float64(resp.RSS)/(1<<20))
	fmt.Printf("CPU: %.2f%%\n", resp.CPUPercent)
	fmt.Printf("Goroutines: %d\n", resp.NumGoroutines)
	fmt.Printf("Notifiers: %s\n", strings.Join(resp.Notifiers, ", "))
	fmt.Printf("Scanners: %s\n", strings.Join(resp.Scanners, ", "))

	if len(resp.Limiters) == 0 {
		return nil
	}
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Service", "Throttled", "Penalty Until"})
	for _, l := range resp.Limiters {
		until := ""
		if !l.PenaltyUntil.IsZero() {
			until = l.PenaltyUntil.Local().Format(time.DateTime)
		}
		table.Append([]string{l.Service, fmt.Sprintf("%d", l.Throttled), until})
	}
	table.Render()
	return nil
}
