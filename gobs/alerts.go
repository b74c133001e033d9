// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

// SentAlert records an alert that was delivered to the notifiers.
type SentAlert struct {
	Fingerprint string

	Scanner string
	Kind    string
	Symbol  string
	Level   string
	Title   string
	Summary string

	SentAt time.Time

	// Notifiers holds names of the notifiers that accepted the message.
	Notifiers []string

	// Count is the number of times this fingerprint was delivered.
	Count int
}

// ScannerState holds the persistent state of a scanner across restarts.
type ScannerState struct {
	Name string

	Paused bool

	LastRunAt  time.Time
	LastError  string
	LastAlerts int

	// Cursor is an opaque, scanner specific resume point, eg: time of the
	// newest news post seen.
	Cursor string

	// Values holds scanner specific reference values, eg: last seen prices.
	Values map[string]string
}

type TelegramState struct {
	UserChatIDMap map[string]int64
}
