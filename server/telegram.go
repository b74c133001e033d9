// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/telegram"
)

func (s *Server) AddTelegramCommand(ctx context.Context, name, purpose string, handler telegram.CmdFunc) error {
	if s.telegramClient != nil {
		return s.telegramClient.AddCommand(ctx, name, purpose, handler)
	}
	return nil // Ignored
}

func (s *Server) addTelegramCommands(ctx context.Context) error {
	cmds := []struct {
		name, purpose string
		handler       telegram.CmdFunc
	}{
		{"status", "Prints the daemon status", s.statusTelegramCmd},
		{"scanners", "Lists the scanners with their last run", s.scannersTelegramCmd},
		{"run", "Runs a scanner immediately: /run <scanner>", s.runTelegramCmd},
		{"pause", "Pauses a scanner: /pause <scanner>", s.pauseTelegramCmd},
		{"resume", "Resumes a scanner: /resume <scanner>", s.resumeTelegramCmd},
		{"history", "Prints delivered alerts: /history [scanner] [period]", s.historyTelegramCmd},
	}
	for _, c := range cmds {
		if err := s.AddTelegramCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return fmt.Errorf("could not add telegram command %q: %w", c.name, err)
		}
	}
	return nil
}

func oneArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("needs exactly one scanner name argument: %w", os.ErrInvalid)
	}
	return args[0], nil
}

func (s *Server) statusTelegramCmd(ctx context.Context, args []string) error {
	resp, err := s.doStatus(ctx, &api.StatusRequest{})
	if err != nil {
		return err
	}
	w := cli.Stdout(ctx)
	fmt.Fprintf(w, "Uptime: %s\n", resp.Uptime.Round(time.Second))
	fmt.Fprintf(w, "RSS: %.1f MiB\n", float64(resp.RSS)/(1<<20))
	fmt.Fprintf(w, "CPU: %.1f%%\n", resp.CPUPercent)
	fmt.Fprintf(w, "Notifiers: %s\n", strings.Join(resp.Notifiers, ", "))
	for _, l := range resp.Limiters {
		if time.Now().Before(l.PenaltyUntil) {
			fmt.Fprintf(w, "Throttled: %s until %s\n", l.Service, l.PenaltyUntil.Format(time.Kitchen))
		}
	}
	return nil
}

func (s *Server) scannersTelegramCmd(ctx context.Context, args []string) error {
	resp, err := s.doScannersList(ctx, &api.ScannersListRequest{})
	if err != nil {
		return err
	}
	w := cli.Stdout(ctx)
	if len(resp.Scanners) == 0 {
		io.WriteString(w, "No scanners are enabled.")
		return nil
	}
	for _, v := range resp.Scanners {
		state := "active"
		if v.Paused {
			state = "paused"
		}
		fmt.Fprintf(w, "%s (%s, %s): last run %s", v.Name, v.Schedule, state, ago(v.LastRunAt))
		if len(v.LastError) > 0 {
			fmt.Fprintf(w, ", error: %s", v.LastError)
		}
		io.WriteString(w, "\n")
	}
	return nil
}

func (s *Server) runTelegramCmd(ctx context.Context, args []string) error {
	name, err := oneArg(args)
	if err != nil {
		return err
	}
	resp, err := s.RunScanner(ctx, name, false /* dryRun */)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "%s: %d alerts, %d sent, %d suppressed", name, len(resp.Alerts), resp.Sent, resp.Suppressed)
	return nil
}

func (s *Server) pauseTelegramCmd(ctx context.Context, args []string) error {
	name, err := oneArg(args)
	if err != nil {
		return err
	}
	if _, err := s.doScannersPause(ctx, &api.ScannersPauseRequest{Name: name}); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Paused %s", name)
	return nil
}

func (s *Server) resumeTelegramCmd(ctx context.Context, args []string) error {
	name, err := oneArg(args)
	if err != nil {
		return err
	}
	if _, err := s.doScannersResume(ctx, &api.ScannersResumeRequest{Name: name}); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Resumed %s", name)
	return nil
}

func (s *Server) historyTelegramCmd(ctx context.Context, args []string) error {
	// Arguments are an optional scanner name and an optional period.
	req := &api.HistoryRequest{Limit: 10}
	for _, arg := range args {
		if slices.Contains(s.scheduler.Names(), arg) {
			req.Scanner = arg
		} else {
			req.Period = arg
		}
	}
	resp, err := s.doHistory(ctx, req)
	if err != nil {
		return err
	}
	w := cli.Stdout(ctx)
	if len(resp.Alerts) == 0 {
		io.WriteString(w, "No alerts were delivered yet.")
		return nil
	}
	for _, v := range resp.Alerts {
		fmt.Fprintf(w, "%s %s: %s\n", v.SentAt.Format("Jan 02 15:04"), v.Scanner, v.Title)
	}
	return nil
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
