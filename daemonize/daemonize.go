// Copyright (c) 2025 BVK Chaitanya

package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process is initialized. Returning
// retry=true with a non-nil error makes the parent check again after a
// second; retry=false with a non-nil error fails the daemonization.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// Daemonize respawns the current program in the background with the same
// command-line arguments. It must be called during the program startup,
// before opening databases or starting servers.
//
// The envKey environment variable identifies the background process; it
// holds the parent process pid in the child and must not be set otherwise.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log is redirected to syslog with the
// tag.
//
// When successful, Daemonize returns nil in the background process and exits
// the parent process with zero status. When unsuccessful, it returns non-nil
// error to the parent process.
func Daemonize(ctx context.Context, envKey, tag string, check CheckFunc) error {
	if len(envKey) == 0 {
		return os.ErrInvalid
	}
	if v := os.Getenv(envKey); len(v) == 0 {
		if err := daemonizeParent(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(tag); err != nil {
		os.Exit(1)
	}
	return nil
}

// IsChild returns true if the current process is the background process.
func IsChild(envKey string) bool {
	v := os.Getenv(envKey)
	if len(v) == 0 {
		return false
	}
	pid, err := strconv.Atoi(v)
	return err == nil && pid == os.Getppid()
}

func daemonizeParent(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	file, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", os.DevNull, err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	env := append(os.Environ(), fmt.Sprintf("%s=%d", envKey, os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   env,
		Files: []*os.File{file, file, file},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start process: %w", err)
	}

	if check != nil {
		time.Sleep(time.Second)
		for ctx.Err() == nil {
			retry, err := check(ctx, child)
			if err == nil {
				break
			}
			if !retry {
				return err
			}
			slog.WarnContext(ctx, "daemon process is not yet initialized", "err", err)
			time.Sleep(time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func daemonizeChild(tag string) error {
	syslogger, err := syslog.New(syslog.LOG_INFO, tag)
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
