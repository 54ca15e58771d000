package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"presupuesto/internal/storage"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := []byte("v1")
	if err := s.Put(ctx, "k", in); err != nil {
		t.Fatalf("put: %v", err)
	}
	in[0] = 'x'
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("store must copy values, got %q err=%v", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	// Missing file -> empty store
	s, err := NewFromFile(filepath.Join(dir, "missing.json"), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected empty store, got %v", err)
	}

	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(`{"2025-08":{}}`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path, "k")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	got, _ := s.Get(context.Background(), "k")
	if string(got) != `{"2025-08":{}}` {
		t.Fatalf("unexpected seeded value %q", got)
	}
}
