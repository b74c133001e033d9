// Copyright (c) 2025 BVK Chaitanya

package cli

import (
	"context"
	"flag"
	"log"
	"testing"
)

type TestCmd struct {
	name  string
	flags *flag.FlagSet
	args  []string
}

func newTestCmd(name string) *TestCmd {
	return &TestCmd{
		name:  name,
		flags: flag.NewFlagSet(name, flag.ContinueOnError),
	}
}

func (t *TestCmd) Command() (string, *flag.FlagSet, CmdFunc) {
	return t.name, t.flags, CmdFunc(func(_ context.Context, args []string) error {
		log.Println("running", t.name, "with args", args)
		t.args = args
		return nil
	})
}

func (t *TestCmd) Purpose() string {
	return "test command " + t.name
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	run := newTestCmd("run")
	background := run.flags.Bool("background", false, "set to run in background")

	scannerList := newTestCmd("list")
	scannerList.flags.String("format", "table", "list output format")
	scannerRun := newTestCmd("run")
	scannerPause := newTestCmd("pause")
	scannerResume := newTestCmd("resume")
	scanner := CommandGroup("scanner", "Manage scanners", scannerList, scannerRun, scannerPause, scannerResume)

	scan := newTestCmd("scan")
	send := scan.flags.Bool("send", false, "send alerts")
	limit := scan.flags.Int("limit", 0, "max alerts")

	cmds := []Command{run, scanner, scan}

	{
		args := []string{"scanner", "pause", "news"}
		if err := Run(ctx, cmds, args); err != nil {
			t.Fatal(err)
		}
		if len(scannerPause.args) != 1 || scannerPause.args[0] != "news" {
			t.Fatalf("want `news`, got %v", scannerPause.args)
		}
	}

	{
		args := []string{"run", "-background", "run-argument"}
		if err := Run(ctx, cmds, args); err != nil {
			t.Fatal(err)
		}
		if len(run.args) != 1 || run.args[0] != "run-argument" {
			t.Fatalf("want `run-argument`, got %v", run.args)
		}
		if *background == false {
			t.Fatalf("want true, got false")
		}
	}

	{
		args := []string{"scan", "--send=true", "-limit=5", "tickers"}
		if err := Run(ctx, cmds, args); err != nil {
			t.Fatal(err)
		}
		if !*send || *limit != 5 {
			t.Fatalf("want send=true limit=5, got send=%v limit=%d", *send, *limit)
		}
		if len(scan.args) != 1 || scan.args[0] != "tickers" {
			t.Fatalf("want `tickers`, got %v", scan.args)
		}
	}

	{
		args := []string{"scanner", "unknown"}
		if err := Run(ctx, cmds, args); err == nil {
			t.Fatalf("want error for undefined command, got nil")
		}
	}
}
