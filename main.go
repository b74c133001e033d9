// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds"
	"github.com/bvk/cryptoalerts/subcmds/db"
	"github.com/bvk/cryptoalerts/subcmds/scanner"
	"github.com/bvk/cryptoalerts/subcmds/setup"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	scannerCmds := []cli.Command{
		new(scanner.List),
		new(scanner.Run),
		new(scanner.Pause),
		new(scanner.Resume),
	}

	setupCmds := []cli.Command{
		new(setup.Show),
		new(setup.Keys),
		new(setup.Discord),
		new(setup.Slack),
		new(setup.Pushover),
		new(setup.Telegram),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Scan),
		new(subcmds.Status),
		new(subcmds.Notify),
		new(subcmds.History),
		new(subcmds.Config),
		cli.CommandGroup("scanner", "Control the scanners in the daemon", scannerCmds...),
		cli.CommandGroup("setup", "Configure api keys and chat services", setupCmds...),
		cli.CommandGroup("db", "View/update database directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
