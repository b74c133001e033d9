// Copyright (c) 2025 BVK Chaitanya

package timerange

import (
	"fmt"
	"os"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func Today(now time.Time) *Range {
	beg := startOfDay(now)
	return &Range{Begin: beg, End: beg.AddDate(0, 0, 1)}
}

func Yesterday(now time.Time) *Range {
	today := startOfDay(now)
	return &Range{Begin: today.AddDate(0, 0, -1), End: today}
}

func ThisWeek(now time.Time) *Range {
	begin := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	return &Range{Begin: begin, End: begin.AddDate(0, 0, 7)}
}

func LastWeek(now time.Time) *Range {
	end := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	return &Range{Begin: end.AddDate(0, 0, -7), End: end}
}

func ThisMonth(now time.Time) *Range {
	begin := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return &Range{Begin: begin, End: begin.AddDate(0, 1, 0)}
}

func LastMonth(now time.Time) *Range {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return &Range{Begin: end.AddDate(0, -1, 0), End: end}
}

// Parse returns the range for a period name relative to now. Period is one of
// "today", "yesterday", "this-week", "last-week", "this-month", "last-month"
// or a duration like "6h" or "2w" for the recent past.
func Parse(period string, now time.Time) (*Range, error) {
	switch period {
	case "":
		return &Range{}, nil
	case "today":
		return Today(now), nil
	case "yesterday":
		return Yesterday(now), nil
	case "this-week":
		return ThisWeek(now), nil
	case "last-week":
		return LastWeek(now), nil
	case "this-month":
		return ThisMonth(now), nil
	case "last-month":
		return LastMonth(now), nil
	}
	d, err := str2duration.ParseDuration(period)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid time period %q: %w", period, os.ErrInvalid)
	}
	return &Range{Begin: now.Add(-d)}, nil
}
