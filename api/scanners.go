// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
	"time"
)

const (
	ScannersListPath   = "/api/scanners/list"
	ScannersRunPath    = "/api/scanners/run"
	ScannersPausePath  = "/api/scanners/pause"
	ScannersResumePath = "/api/scanners/resume"
)

type ScannersListRequest struct {
}

type ScannerInfo struct {
	Name     string
	Schedule string
	Paused   bool
	Running  bool

	Next time.Time
	Prev time.Time

	LastRunAt  time.Time
	LastError  string
	LastAlerts int
}

type ScannersListResponse struct {
	Scanners []*ScannerInfo
}

type ScannersRunRequest struct {
	Name string

	// DryRun returns the alerts without sending them to the notifiers.
	DryRun bool
}

func (r *ScannersRunRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("scanner name cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type Alert struct {
	Scanner string
	Kind    string
	Symbol  string
	Level   string
	Title   string
	Text    string
}

type ScannersRunResponse struct {
	Alerts []*Alert

	Sent       int
	Suppressed int
	Notifiers  []string
}

type ScannersPauseRequest struct {
	Name string
}

func (r *ScannersPauseRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("scanner name cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type ScannersPauseResponse struct {
	Paused bool
}

type ScannersResumeRequest struct {
	Name string
}

func (r *ScannersResumeRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("scanner name cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type ScannersResumeResponse struct {
	Paused bool
}
