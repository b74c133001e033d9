// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"github.com/bvkgo/kv"
)

type Get struct {
	cmdutil.DBFlags

	valueType string
	raw       bool
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.valueType, "value-type", "", "gob type name for the value; guessed from the key when empty")
	fset.BoolVar(&c.raw, "raw", false, "when true, prints the value bytes in hex")
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) Purpose() string {
	return "Prints the value of a key in the database"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}
	key := args[0]

	typename := c.valueType
	if len(typename) == 0 {
		typename = keyTypeName(key)
	}
	if !c.raw && len(typename) == 0 {
		return fmt.Errorf("could not determine value type for key %q; use -value-type or -raw flags", key)
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	get := func(ctx context.Context, r kv.Reader) error {
		v, err := r.Get(ctx, key)
		if err != nil {
			return err
		}
		if c.raw {
			data, err := io.ReadAll(v)
			if err != nil {
				return err
			}
			fmt.Printf("%x\n", data)
			return nil
		}
		value, err := TypeNameValue(typename)
		if err != nil {
			return err
		}
		if err := gob.NewDecoder(v).Decode(value); err != nil {
			return fmt.Errorf("could not gob-decode value for key %q: %w", key, err)
		}
		js, _ := json.MarshalIndent(value, "", "  ")
		fmt.Printf("%s\n", js)
		return nil
	}
	return kv.WithReader(ctx, db, get)
}
