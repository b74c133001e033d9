// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

func TestGetSetDB(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	if _, err := GetDB[gobs.ScannerState](ctx, db, "/scanners/news"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}

	state := &gobs.ScannerState{Name: "news", Cursor: "100"}
	if err := SetDB(ctx, db, "/scanners/news", state); err != nil {
		t.Fatal(err)
	}
	got, err := GetDB[gobs.ScannerState](ctx, db, "/scanners/news")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "news" || got.Cursor != "100" {
		t.Fatalf("want %#v, got %#v", state, got)
	}
}

func TestAscendDescend(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("/history/%02d", i)
		if err := SetDB(ctx, db, key, &gobs.SentAlert{Title: key}); err != nil {
			t.Fatal(err)
		}
	}
	if err := SetDB(ctx, db, "/other/x", &gobs.SentAlert{Title: "other"}); err != nil {
		t.Fatal(err)
	}

	begin, end := PathRange("/history")

	var ascending []string
	err := AscendDB(ctx, db, begin, end, func(_ context.Context, _ kv.Reader, k string, _ *gobs.SentAlert) error {
		ascending = append(ascending, k)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ascending) != 5 || ascending[0] != "/history/00" {
		t.Fatalf("unexpected ascend result %v", ascending)
	}

	var descending []string
	err = DescendDB(ctx, db, begin, end, func(_ context.Context, _ kv.Reader, k string, _ *gobs.SentAlert) error {
		descending = append(descending, k)
		if len(descending) == 2 {
			return io.EOF
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(descending) != 2 || descending[0] != "/history/04" || descending[1] != "/history/03" {
		t.Fatalf("unexpected descend result %v", descending)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src, dst := kvmemdb.New(), kvmemdb.New()

	if err := SetDB(ctx, src, "/a", &gobs.ScannerState{Name: "a"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := kv.WithReader(ctx, src, func(ctx context.Context, r kv.Reader) error {
		return Export(ctx, r, &buf)
	}); err != nil {
		t.Fatal(err)
	}
	if err := kv.WithReadWriter(ctx, dst, func(ctx context.Context, rw kv.ReadWriter) error {
		return Import(ctx, &buf, rw)
	}); err != nil {
		t.Fatal(err)
	}

	got, err := GetDB[gobs.ScannerState](ctx, dst, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a" {
		t.Fatalf("want a, got %q", got.Name)
	}
}
