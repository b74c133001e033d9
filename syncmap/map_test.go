// Copyright (c) 2025 BVK Chaitanya

package syncmap

import "testing"

func TestMap(t *testing.T) {
	var m Map[string, int]

	m.Store("a", 1)
	if v, loaded := m.LoadOrStore("a", 2); !loaded || v != 1 {
		t.Fatalf("want existing value 1, got %d (loaded=%v)", v, loaded)
	}
	if v, loaded := m.LoadOrStore("b", 2); loaded || v != 2 {
		t.Fatalf("want stored value 2, got %d (loaded=%v)", v, loaded)
	}
	if n := m.Len(); n != 2 {
		t.Fatalf("want 2 entries, got %d", n)
	}
	if !m.CompareAndDelete("b", 2) {
		t.Fatalf("want compare-and-delete to succeed")
	}
	if _, ok := m.Load("b"); ok {
		t.Fatalf("want b deleted")
	}
}
