// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
)

type Config struct {
	cmdutil.DataFlags

	initFile bool
}

func (c *Config) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("config", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.initFile, "init", false, "when true, writes an example config file if it doesn't exist")
	return "config", fset, cli.CmdFunc(c.run)
}

func (c *Config) Purpose() string {
	return "Prints the effective configuration"
}

func (c *Config) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	fpath, err := c.DataFlags.ConfigPath()
	if err != nil {
		return err
	}

	if c.initFile {
		if _, err := os.Stat(fpath); err == nil {
			return fmt.Errorf("config file %q already exists: %w", fpath, os.ErrExist)
		}
		data, err := json.MarshalIndent(config.Example(), "", "  ")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(fpath, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Saved config to %s\n", fpath)
		return nil
	}

	cfg, err := c.DataFlags.LoadConfig()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}
