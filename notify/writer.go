// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer is a notifier that appends messages to an io.Writer, eg: the
// standard output or an alert log file.
type Writer struct {
	name string

	mu sync.Mutex
	w  io.Writer
}

func NewWriter(name string, w io.Writer) *Writer {
	return &Writer{name: name, w: w}
}

func (w *Writer) Name() string {
	return w.name
}

func (w *Writer) MaxMessageLen() int {
	return 0
}

// SendMessage writes the message prefixed with a timestamp line.
func (w *Writer) SendMessage(ctx context.Context, at time.Time, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.w, "--- %s\n%s\n\n", at.Format(time.RFC3339), text); err != nil {
		return fmt.Errorf("could not write message: %w", err)
	}
	return nil
}
