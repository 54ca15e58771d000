package backend

import (
	"context"
	"fmt"

	"presupuesto/internal/log"
	"presupuesto/internal/storage"
	"presupuesto/internal/storage/memory"
	"presupuesto/internal/storage/mongo"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the store named by config.Type.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	default:
		return f.createMemoryBackend(config)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", store.SchemaVersion())

	return &BackendResult{
		Store:   store,
		Pinger:  store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := mongo.New(ctx, config.MongoURI, config.MongoDB, config.MongoCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend",
		"database", config.MongoDB,
		"collection", config.MongoCollection)

	return &BackendResult{
		Store:   store,
		Pinger:  store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.MemorySeedFile == "" {
		store := memory.New()
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: store, Pinger: store, Cleanup: store.Close}, nil
	}

	store, err := memory.NewFromFile(config.MemorySeedFile, config.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed file: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{Store: store, Pinger: store, Cleanup: store.Close}, nil
}
