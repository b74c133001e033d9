// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/server"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// Scan runs scanners once without a daemon.
type Scan struct {
	cmdutil.DataFlags

	send  bool
	useDB bool
}

func (c *Scan) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("scan", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.send, "send", false, "when true, alerts are sent to the configured notifiers")
	fset.BoolVar(&c.useDB, "use-db", false, "when true, uses the database in the data directory; daemon must not be running")
	return "scan", fset, cli.CmdFunc(c.run)
}

func (c *Scan) Purpose() string {
	return "Runs the scanners once and prints the alerts"
}

func (c *Scan) Description() string {
	return `

Command "scan" runs the named scanners (or all enabled scanners) once, without
a running daemon, and prints the alert messages to the standard output.

Scanners that compare against previous values (eg: prices) keep their state
in the database. An in-memory database is used by default, so such scanners
only record the reference values. Use -use-db flag to share the daemon's
database when it is not running.

`
}

func (c *Scan) run(ctx context.Context, args []string) error {
	secrets, err := c.DataFlags.LoadSecrets()
	if err != nil {
		return err
	}
	cfg, err := c.DataFlags.LoadConfig()
	if err != nil {
		return err
	}

	var db kv.Database = kvmemdb.New()
	if c.useDB {
		dataDir, err := c.DataFlags.DataDir()
		if err != nil {
			return err
		}
		bdb, err := badger.Open(badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil))
		if err != nil {
			return fmt.Errorf("could not open the database: %w", err)
		}
		defer bdb.Close()
		db = kvbadger.New(bdb, cmdutil.IsGoodKey)
	}

	opts := &server.Options{
		NoTelegram: true,
		NoPrune:    true,
	}
	if c.send {
		// Delivered messages are also printed.
		opts.Notifiers = []notify.Notifier{notify.NewWriter("stdout", os.Stdout)}
	}
	s, err := server.New(ctx, secrets, cfg, db, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	names := args
	if len(names) == 0 {
		names = s.Scanners()
	}
	if len(names) == 0 {
		return fmt.Errorf("no scanners are enabled in the config file")
	}

	for _, name := range names {
		resp, err := s.RunScanner(ctx, name, !c.send)
		if err != nil {
			return err
		}
		if !c.send {
			for _, a := range resp.Alerts {
				fmt.Printf("%s\n\n", a.Text)
			}
		}
		fmt.Fprintf(os.Stderr, "%s: %d alerts", name, len(resp.Alerts))
		if c.send {
			fmt.Fprintf(os.Stderr, ", %d sent, %d suppressed", resp.Sent, resp.Suppressed)
		}
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
