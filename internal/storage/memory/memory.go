package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"presupuesto/internal/storage"
)

// Store keeps values in process memory. Nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
}

func New() *Store {
	return &Store{values: map[string][]byte{}}
}

// NewFromFile preloads key with the contents of path, typically a ledger
// written earlier by the SQLite or Mongo backends. A missing file yields an
// empty store.
func NewFromFile(path, key string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	s.values[key] = b
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }
