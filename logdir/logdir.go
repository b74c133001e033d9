// Copyright (c) 2025 BVK Chaitanya

/*
Package logdir implements an append-only file writer that limits the file size
in a given directory. A new file is started when the current file reaches the
size limit and the oldest files are removed beyond a maximum count.
*/
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

type Options struct {
	// ReuseInterval is the time interval during which a new backend instance
	// appends to an existing file instead of creating a new one. Avoids
	// filling up the directory when the program is in a crash-loop.
	ReuseInterval time.Duration

	// MaxFileSize is the size limit for a single file in bytes.
	MaxFileSize int64

	// MaxFiles is the number of files kept in the directory. Zero keeps all
	// files.
	MaxFiles int

	// FileMode is the permissions for the new files.
	FileMode os.FileMode
}

func (v *Options) setDefaults() {
	if v.ReuseInterval == 0 {
		v.ReuseInterval = time.Hour
	}
	if v.MaxFileSize == 0 {
		v.MaxFileSize = 16 << 20
	}
	if v.FileMode == 0 {
		v.FileMode = 0o600
	}
}

type Backend struct {
	opts Options

	dirname, logname string

	mu   sync.Mutex
	fp   *os.File
	size int64
}

// New creates a writer for files named "<logname>-<timestamp>.log" in the
// directory. Directory is created if it doesn't exist.
func New(dirname, logname string, opts *Options) (*Backend, error) {
	if len(logname) == 0 || strings.ContainsRune(logname, filepath.Separator) {
		return nil, fmt.Errorf("invalid log name %q: %w", logname, os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	if err := os.MkdirAll(dirname, 0o700); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	b := &Backend{
		opts:    *opts,
		dirname: dirname,
		logname: logname,
	}
	fp, size, err := b.openFile(time.Now(), opts.ReuseInterval)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	b.fp, b.size = fp, size
	return b, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return os.ErrClosed
	}
	err := b.fp.Close()
	b.fp = nil
	return err
}

// Name returns the current file path.
func (b *Backend) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return ""
	}
	return b.fp.Name()
}

func fileName(logname string, at time.Time, truncate time.Duration) string {
	at = at.UTC()
	if truncate != 0 {
		at = at.Truncate(truncate)
	}
	return fmt.Sprintf("%s-%s.log", logname, at.Format("20060102-150405.000000000"))
}

func (b *Backend) openFile(at time.Time, truncate time.Duration) (*os.File, int64, error) {
	filename := filepath.Join(b.dirname, fileName(b.logname, at, truncate))
	fp, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, b.opts.FileMode)
	if err != nil {
		return nil, -1, fmt.Errorf("could not open/create log file: %w", err)
	}
	finfo, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, -1, fmt.Errorf("could not get file size: %w", err)
	}
	if size := finfo.Size(); size < b.opts.MaxFileSize {
		return fp, size, nil
	}
	fp.Close()
	if truncate == 0 {
		// Full file with a nanosecond timestamp; try again with a later time.
		return b.openFile(at.Add(time.Nanosecond), 0)
	}
	return b.openFile(at, 0)
}

// Files returns the log files in the directory in creation order.
func (b *Backend) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dirname, b.logname+"-*.log"))
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func (b *Backend) removeOld() error {
	if b.opts.MaxFiles <= 0 {
		return nil
	}
	files, err := b.Files()
	if err != nil {
		return err
	}
	for len(files) > b.opts.MaxFiles {
		if err := os.Remove(files[0]); err != nil {
			return err
		}
		files = files[1:]
	}
	return nil
}

func (b *Backend) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return 0, os.ErrClosed
	}
	if b.size > 0 && b.size+int64(len(data)) > b.opts.MaxFileSize {
		fp, size, err := b.openFile(time.Now(), 0)
		if err != nil {
			return 0, fmt.Errorf("could not open new log file: %w", err)
		}
		b.fp.Close()
		b.fp, b.size = fp, size
		if err := b.removeOld(); err != nil {
			return 0, fmt.Errorf("could not remove old log files: %w", err)
		}
	}
	n, err := b.fp.Write(data)
	b.size += int64(n)
	return n, err
}
