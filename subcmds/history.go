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

type History struct {
	cmdutil.ClientFlags

	scanner string
	period  string
	limit   int
}

func (c *History) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("history", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.scanner, "scanner", "", "when non-empty, prints alerts from this scanner only")
	fset.StringVar(&c.period, "period", "", "time period: today, yesterday, this-week, last-week, this-month, last-month or a duration like 6h")
	fset.IntVar(&c.limit, "limit", 20, "max number of alerts to print")
	return "history", fset, cli.CmdFunc(c.run)
}

func (c *History) Purpose() string {
	return "Prints the recently delivered alerts"
}

func (c *History) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.HistoryRequest{
		Scanner: c.scanner,
		Period:  c.period,
		Limit:   c.limit,
	}
	resp, err := cmdutil.Post[api.HistoryResponse](ctx, &c.ClientFlags, api.HistoryPath, req)
	if err != nil {
		return err
	}
	if len(resp.Alerts) == 0 {
		fmt.Println("No alerts were delivered.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Sent At", "Scanner", "Level", "Symbol", "Title", "Count", "Notifiers"})
	table.SetAutoWrapText(false)
	for _, a := range resp.Alerts {
		table.Append([]string{
			a.SentAt.Local().Format(time.DateTime),
			a.Scanner,
			a.Level,
			a.Symbol,
			a.Title,
			fmt.Sprintf("%d", a.Count),
			strings.Join(a.Notifiers, ","),
		})
	}
	table.Render()
	return nil
}
