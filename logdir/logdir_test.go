// Copyright (c) 2025 BVK Chaitanya

package logdir

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDir(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir, "alerts", &Options{MaxFileSize: 1024, MaxFiles: 3})
	require.NoError(t, err)
	defer b.Close()

	line := strings.Repeat("x", 99) + "\n"
	for i := 0; i < 100; i++ {
		n, err := b.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	files, err := b.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)
	for _, f := range files {
		fi, err := os.Stat(f)
		require.NoError(t, err)
		assert.LessOrEqual(t, fi.Size(), int64(1024))
	}

	require.NoError(t, b.Close())
	_, err = b.Write([]byte(line))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestReuse(t *testing.T) {
	dir := t.TempDir()
	b1, err := New(dir, "alerts", nil)
	require.NoError(t, err)
	_, err = b1.Write([]byte("first\n"))
	require.NoError(t, err)
	name := b1.Name()
	require.NoError(t, b1.Close())

	b2, err := New(dir, "alerts", nil)
	require.NoError(t, err)
	defer b2.Close()
	assert.Equal(t, name, b2.Name())

	_, err = New(dir, "a/b", nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
}
