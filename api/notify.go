// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
	"strings"
)

const NotifyPath = "/api/notify"

type NotifyRequest struct {
	Text string
}

func (r *NotifyRequest) Check() error {
	if len(strings.TrimSpace(r.Text)) == 0 {
		return fmt.Errorf("message text cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type NotifyResponse struct {
	Notifiers []string
}
