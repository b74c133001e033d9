// Copyright (c) 2025 BVK Chaitanya

package cli

import (
	"context"
	"io"
	"os"
)

type stdoutKey struct{}

// WithStdout returns a context that redirects the output of commands that
// print with Stdout(ctx). Used to capture command output for chat replies.
func WithStdout(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

// Stdout returns the output writer for the command, which defaults to
// os.Stdout.
func Stdout(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stdoutKey{}).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
