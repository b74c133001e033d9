// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/api"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/bvk/cryptoalerts/timerange"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/process"
)

func (s *Server) doScannersList(ctx context.Context, req *api.ScannersListRequest) (*api.ScannersListResponse, error) {
	entries, err := s.scheduler.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := new(api.ScannersListResponse)
	for _, e := range entries {
		resp.Scanners = append(resp.Scanners, &api.ScannerInfo{
			Name:       e.Name,
			Schedule:   e.Spec,
			Paused:     e.Paused,
			Running:    e.Running,
			Next:       e.Next,
			Prev:       e.Prev,
			LastRunAt:  e.LastRunAt,
			LastError:  e.LastError,
			LastAlerts: e.LastAlerts,
		})
	}
	return resp, nil
}

func (s *Server) doScannersRun(ctx context.Context, req *api.ScannersRunRequest) (*api.ScannersRunResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	return s.RunScanner(ctx, req.Name, req.DryRun)
}

// RunScanner runs a scanner immediately. Alerts are delivered synchronously
// unless dryRun is true.
func (s *Server) RunScanner(ctx context.Context, name string, dryRun bool) (*api.ScannersRunResponse, error) {
	alerts, err := s.scheduler.RunNow(ctx, name)
	if err != nil {
		return nil, err
	}

	resp := new(api.ScannersRunResponse)
	for _, a := range alerts {
		text, err := alert.Render(a)
		if err != nil {
			return nil, fmt.Errorf("could not render alert: %w", err)
		}
		resp.Alerts = append(resp.Alerts, &api.Alert{
			Scanner: a.Scanner,
			Kind:    a.Kind,
			Symbol:  a.Symbol,
			Level:   a.Level.String(),
			Title:   a.Title,
			Text:    text,
		})
	}
	if dryRun || len(alerts) == 0 {
		return resp, nil
	}

	result, err := s.dispatcher.Deliver(ctx, alerts)
	if result != nil {
		resp.Sent = result.Sent
		resp.Suppressed = result.Suppressed
		resp.Notifiers = result.Notifiers
	}
	if err != nil {
		return nil, fmt.Errorf("could not deliver alerts from scanner %q: %w", name, err)
	}
	return resp, nil
}

func (s *Server) doScannersPause(ctx context.Context, req *api.ScannersPauseRequest) (*api.ScannersPauseResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := s.scheduler.Pause(ctx, req.Name); err != nil {
		return nil, err
	}
	return &api.ScannersPauseResponse{Paused: true}, nil
}

func (s *Server) doScannersResume(ctx context.Context, req *api.ScannersResumeRequest) (*api.ScannersResumeResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := s.scheduler.Resume(ctx, req.Name); err != nil {
		return nil, err
	}
	return &api.ScannersResumeResponse{Paused: false}, nil
}

func (s *Server) doNotify(ctx context.Context, req *api.NotifyRequest) (*api.NotifyResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if s.notifiers.Len() == 0 {
		return nil, fmt.Errorf("no notifiers are configured: %w", os.ErrNotExist)
	}
	sent, err := s.SendMessage(ctx, time.Now(), req.Text)
	if len(sent) == 0 && err != nil {
		return nil, err
	}
	return &api.NotifyResponse{Notifiers: sent}, nil
}

func (s *Server) doHistory(ctx context.Context, req *api.HistoryRequest) (*api.HistoryResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}
	period, err := timerange.Parse(req.Period, time.Now().In(s.opts.Location))
	if err != nil {
		return nil, err
	}
	records, err := s.store.HistoryIn(ctx, req.Scanner, period, limit)
	if err != nil {
		return nil, err
	}
	resp := &api.HistoryResponse{
		Alerts: lo.Map(records, func(r *gobs.SentAlert, _ int) *api.HistoryItem {
			return &api.HistoryItem{
				SentAt:    r.SentAt,
				Scanner:   r.Scanner,
				Kind:      r.Kind,
				Symbol:    r.Symbol,
				Level:     r.Level,
				Title:     r.Title,
				Notifiers: r.Notifiers,
				Count:     r.Count,
			}
		}),
	}
	return resp, nil
}

func (s *Server) doStatus(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	resp := &api.StatusResponse{
		PID:           int32(os.Getpid()),
		StartTime:     s.startTime,
		Uptime:        time.Since(s.startTime),
		NumGoroutines: runtime.NumGoroutine(),
		Notifiers:     s.notifiers.Names(),
		Scanners:      s.scheduler.Names(),
	}

	if p, err := process.NewProcessWithContext(ctx, resp.PID); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			resp.RSS = mi.RSS
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			resp.CPUPercent = pct
		}
	}

	s.limiters.Range(func(name string, l *ratelimit.Limiter) bool {
		resp.Limiters = append(resp.Limiters, &api.LimiterStatus{
			Service:      name,
			Throttled:    l.Throttled(),
			PenaltyUntil: l.PenaltyUntil(),
		})
		return true
	})
	slices.SortFunc(resp.Limiters, func(a, b *api.LimiterStatus) int {
		return strings.Compare(a.Service, b.Service)
	})
	return resp, nil
}
