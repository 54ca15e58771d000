package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// latestSchemaVersion is the newest kv migration: 1 creates kv_store, 2 adds
// the kv_history audit table and its triggers.
const latestSchemaVersion uint = 2

// RunMigrations brings the kv schema at dbPath up to date and returns the
// version it ends at. A database left dirty by an interrupted run is an
// error.
func RunMigrations(dbPath string) (uint, error) {
	// Separate connection so the store's pool is not closed by migrate.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded kv migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate kv schema to v%d: %w", latestSchemaVersion, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read kv schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("kv schema v%d is dirty", version)
	}
	return version, nil
}
