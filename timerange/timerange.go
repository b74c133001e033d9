// Copyright (c) 2025 BVK Chaitanya

// Package timerange defines half-open time periods used to filter the alert
// history.
package timerange

import (
	"time"
)

// Range is the half-open period [Begin, End). Zero Begin or End leaves that
// side unbounded.
type Range struct {
	Begin, End time.Time
}

func (r *Range) IsZero() bool {
	return r == nil || (r.Begin.IsZero() && r.End.IsZero())
}

func (r *Range) InRange(v time.Time) bool {
	if r.IsZero() {
		return true
	}
	if !r.Begin.IsZero() && v.Before(r.Begin) {
		return false
	}
	if !r.End.IsZero() && (v.Equal(r.End) || v.After(r.End)) {
		return false
	}
	return true
}

// Before reports if the time is before the beginning of the range.
func (r *Range) Before(v time.Time) bool {
	return !r.IsZero() && !r.Begin.IsZero() && v.Before(r.Begin)
}
