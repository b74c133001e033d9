// Copyright (c) 2025 BVK Chaitanya

// Package setup implements the commands that save api keys and chat
// service credentials into the secrets file.
package setup

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/notify"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

type Flags struct {
	cmdutil.DataFlags

	skipTesting bool
}

func (f *Flags) SetFlags(fset *flag.FlagSet) {
	f.DataFlags.SetFlags(fset)
	fset.BoolVar(&f.skipTesting, "skip-testing", false, "don't send a test message")
}

// load returns the secrets from the secrets file only; environment
// overrides are not saved back.
func (f *Flags) load() (*config.Secrets, string, error) {
	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, "", err
	}
	secrets, err := config.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
		secrets = new(config.Secrets)
	}
	return secrets, fpath, nil
}

func (f *Flags) save(secrets *config.Secrets, fpath string) error {
	if err := secrets.Check(); err != nil {
		return err
	}
	if err := secrets.Save(fpath); err != nil {
		return fmt.Errorf("could not save secrets file %q: %w", fpath, err)
	}
	fmt.Printf("Saved secrets to %s\n", fpath)
	return nil
}

// test sends a test message through the notifier unless testing is skipped.
func (f *Flags) test(ctx context.Context, n notify.Notifier) error {
	if f.skipTesting {
		return nil
	}
	msg := fmt.Sprintf("Test message from cryptoalerts %s setup; please ignore.", n.Name())
	if err := n.SendMessage(ctx, time.Now(), msg); err != nil {
		return fmt.Errorf("could not send test message to %s: %w", n.Name(), err)
	}
	return nil
}

// prompt reads a value from the terminal when the flag value is empty. Input
// is not echoed for secret values.
func prompt(value *string, label string, secret bool) error {
	if len(*value) != 0 {
		return nil
	}
	fmt.Printf("%s: ", label)
	fd := int(os.Stdin.Fd())
	if secret && term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("could not read %s: %w", label, err)
		}
		*value = strings.TrimSpace(string(data))
		return nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && len(line) == 0 {
		return fmt.Errorf("could not read %s: %w", label, err)
	}
	*value = strings.TrimSpace(line)
	return nil
}

// waitKey waits for a single key press on the terminal.
func waitKey(msg string) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fmt.Println(msg)
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	b := make([]byte, 1)
	_, err = os.Stdin.Read(b)
	return err
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
