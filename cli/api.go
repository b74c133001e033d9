// Copyright (c) 2025 BVK Chaitanya

// Package cli implements a small command-line parser on top of the standard
// library's flag.FlagSets.
//
// Commands are grouped into subcommands of arbitrary depth with CommandGroup.
// Top-level "help", "flags" and "commands" pseudo commands print
// documentation collected from the Purpose and Description methods.
//
// # EXAMPLE
//
//	type scanCmd struct {
//		send bool
//	}
//
//	func (c *scanCmd) run(ctx context.Context, args []string) error {
//		...
//	}
//
//	func (c *scanCmd) Command() (string, *flag.FlagSet, cli.CmdFunc) {
//		fset := flag.NewFlagSet("scan", flag.ContinueOnError)
//		fset.BoolVar(&c.send, "send", false, "posts alerts to the notifiers")
//		return "scan", fset, cli.CmdFunc(c.run)
//	}
//
//	func (c *scanCmd) Purpose() string {
//		return "Runs a scanner once and prints the alerts."
//	}
package cli

import (
	"context"
	"flag"
	"os"
)

// CmdFunc defines the signature for command execution functions.
type CmdFunc func(ctx context.Context, args []string) error

// Command interface defines the requirements for Command implementations.
type Command interface {
	// Command returns the command name, it's flags and the execution
	// function. Flags must be non-nil. Execution function is nil for command
	// groups.
	Command() (string, *flag.FlagSet, CmdFunc)

	// Purpose returns a one-line summary of the command.
	Purpose() string
}

// CommandGroup groups a collection of commands under a parent command.
func CommandGroup(name, purpose string, cmds ...Command) Command {
	return &cmdGroup{
		name:    name,
		purpose: purpose,
		flags:   flag.NewFlagSet(name, flag.ContinueOnError),
		subcmds: cmds,
	}
}

// Run parses command-line arguments from `args` into flags and subcommands and
// picks the best command to execute from `cmds`. Top-level command flags from
// flag.CommandLine flags are also processed on the way to resolving the best
// command.
func Run(ctx context.Context, cmds []Command, args []string) error {
	if cmds == nil {
		return os.ErrInvalid
	}
	root := cmdGroup{
		name:    flag.CommandLine.Name(),
		flags:   flag.CommandLine,
		subcmds: cmds,
	}
	return root.run(ctx, args)
}
