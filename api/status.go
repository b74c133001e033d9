// Copyright (c) 2025 BVK Chaitanya

package api

import "time"

const StatusPath = "/api/status"

type StatusRequest struct {
}

type LimiterStatus struct {
	Service      string
	Throttled    int
	PenaltyUntil time.Time
}

type StatusResponse struct {
	PID       int32
	StartTime time.Time
	Uptime    time.Duration

	// Process resource usage.
	RSS           uint64
	CPUPercent    float64
	NumGoroutines int

	Notifiers []string
	Scanners  []string
	Limiters  []*LimiterStatus
}
