package backend

import (
	"context"

	"presupuesto/internal/storage"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// BackendResult is a ready store plus the hooks the process needs around it.
type BackendResult struct {
	Store   storage.Store
	Pinger  storage.Pinger
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// memory: optional JSON document to start from
	MemorySeedFile string
	StorageKey     string

	// sqlite
	SQLiteDBPath string

	// mongo
	MongoURI        string
	MongoDB         string
	MongoCollection string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
