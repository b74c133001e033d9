// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
)

type Pause struct {
	cmdutil.ClientFlags
}

func (c *Pause) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pause", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "pause", fset, cli.CmdFunc(c.run)
}

func (c *Pause) Purpose() string {
	return "Pauses the scheduled runs of a scanner"
}

func (c *Pause) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (scanner name) argument")
	}
	req := &api.ScannersPauseRequest{Name: args[0]}
	if _, err := cmdutil.Post[api.ScannersPauseResponse](ctx, &c.ClientFlags, api.ScannersPausePath, req); err != nil {
		return err
	}
	fmt.Printf("scanner %q is paused\n", args[0])
	return nil
}

type Resume struct {
	cmdutil.ClientFlags
}

func (c *Resume) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("resume", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "resume", fset, cli.CmdFunc(c.run)
}

func (c *Resume) Purpose() string {
	return "Resumes the scheduled runs of a paused scanner"
}

func (c *Resume) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (scanner name) argument")
	}
	req := &api.ScannersResumeRequest{Name: args[0]}
	if _, err := cmdutil.Post[api.ScannersResumeResponse](ctx, &c.ClientFlags, api.ScannersResumePath, req); err != nil {
		return err
	}
	fmt.Printf("scanner %q is resumed\n", args[0])
	return nil
}
