package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"presupuesto/internal/storage"
)

// Runs against a real server only when MONGODB_TEST_URI is set.
func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, uri, "presupuesto_test", "kv_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	defer s.collection.Drop(context.Background())

	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", []byte(`{"2025-08":{}}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte(`{"2025-09":{}}`)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != `{"2025-09":{}}` {
		t.Fatalf("unexpected value %q err=%v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
