// Copyright (c) 2025 BVK Chaitanya

// Package alert defines the normalized alert record produced by all scanners
// and the single template used to turn alerts into chat messages.
package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"
)

type Level int

const (
	Info Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Emoji returns the marker prefixed to the alert title in messages.
func (l Level) Emoji() string {
	switch l {
	case Warning:
		return "⚠️"
	case Critical:
		return "🚨"
	}
	return "ℹ️"
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "critical", "crit":
		return Critical, nil
	}
	return Info, fmt.Errorf("unknown alert level %q: %w", s, os.ErrInvalid)
}

type Field struct {
	Name  string
	Value string
}

// Alert is the normalized record for everything that is posted to the chat
// channels.
type Alert struct {
	// Scanner is the name of the scanner that raised the alert.
	Scanner string

	// Kind identifies the condition, eg: "rsi-overbought".
	Kind string

	// Symbol is the asset, pair or contract address the alert is about.
	Symbol string

	Level Level

	Title   string
	Summary string
	Fields  []Field
	URL     string

	At time.Time

	// Dedup distinguishes otherwise identical alerts that must not suppress
	// each other, eg: a news post id or the candle interval.
	Dedup string
}

// AddField appends a named value formatted with fmt.Sprint semantics and
// returns the alert for chaining.
func (a *Alert) AddField(name string, value any) *Alert {
	a.Fields = append(a.Fields, Field{Name: name, Value: fmt.Sprint(value)})
	return a
}

// Fingerprint returns a stable identifier for the alert condition, used to
// suppress duplicate notifications.
func (a *Alert) Fingerprint() string {
	h := sha256.New()
	for _, s := range []string{a.Scanner, a.Kind, strings.ToUpper(a.Symbol), a.Dedup} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (a *Alert) Check() error {
	if len(a.Scanner) == 0 {
		return fmt.Errorf("alert scanner name cannot be empty: %w", os.ErrInvalid)
	}
	if len(a.Kind) == 0 {
		return fmt.Errorf("alert kind cannot be empty: %w", os.ErrInvalid)
	}
	if len(a.Title) == 0 {
		return fmt.Errorf("alert title cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}
