// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
	"time"
)

const HistoryPath = "/api/history"

type HistoryRequest struct {
	// Scanner filters the history by scanner name when non-empty.
	Scanner string

	// Period limits the alerts by delivery time, eg: "today", "last-week" or
	// "6h". Empty period is unbounded.
	Period string

	Limit int
}

func (r *HistoryRequest) Check() error {
	if r.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type HistoryItem struct {
	SentAt    time.Time
	Scanner   string
	Kind      string
	Symbol    string
	Level     string
	Title     string
	Notifiers []string
	Count     int
}

type HistoryResponse struct {
	Alerts []*HistoryItem
}
