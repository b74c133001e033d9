// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/config"
)

// Keys saves the data source api keys given as name=value arguments.
type Keys struct {
	Flags
}

var keyNames = []string{"taapi", "lunarcrush", "coingecko", "cryptopanic", "binance-key", "binance-secret"}

func (c *Keys) Purpose() string {
	return "Configures api keys for the data sources"
}

func (c *Keys) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("keys", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	return "keys", fset, cli.CmdFunc(c.run)
}

func (c *Keys) Description() string {
	return `

Command "keys" saves api keys for the data sources into the secrets file. Keys
are given as name=value arguments. Valid names are taapi, lunarcrush,
coingecko, cryptopanic, binance-key and binance-secret. An empty value removes
the key.

  $ cryptoalerts setup keys taapi=eyJhbGciOi... cryptopanic=3f1b...

`
}

func (c *Keys) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs one or more name=value arguments")
	}

	values := make(map[string]string)
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("invalid argument %q", arg)
		}
		if !slices.Contains(keyNames, name) {
			return fmt.Errorf("invalid/unrecognized key name %q", name)
		}
		if v, ok := values[name]; ok && v != value {
			return fmt.Errorf("key %q is found with different values", name)
		}
		values[name] = strings.TrimSpace(value)
	}

	secrets, fpath, err := c.load()
	if err != nil {
		return err
	}
	for name, value := range values {
		switch name {
		case "taapi":
			secrets.TAAPI = value
		case "lunarcrush":
			secrets.LunarCrush = value
		case "coingecko":
			secrets.CoinGecko = value
		case "cryptopanic":
			secrets.CryptoPanic = value
		case "binance-key", "binance-secret":
			if secrets.Binance == nil {
				secrets.Binance = new(config.BinanceKeys)
			}
			if name == "binance-key" {
				secrets.Binance.APIKey = value
			} else {
				secrets.Binance.SecretKey = value
			}
		}
	}
	if secrets.Binance != nil && secrets.Binance.APIKey == "" && secrets.Binance.SecretKey == "" {
		secrets.Binance = nil
	}
	return c.save(secrets, fpath)
}
