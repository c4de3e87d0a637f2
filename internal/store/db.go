// Package store is the SQLite-backed persistence layer for every entity in
// the data model (spec §3): venues, gateway display-name overrides,
// sensor models, planned mounts, regions of interest, pairings,
// commissioned sensors, deployment records, placement runs, and audit
// events. Grounded on the teacher's internal/db and
// internal/lidar/*_store.go: a thin *sql.DB wrapper, golang-migrate/v4 with
// an embedded iofs source for schema management, and one file per entity
// holding both the Go struct and its store methods.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps *sql.DB with the commissioning schema applied.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the performance/concurrency PRAGMAs the teacher's db layer uses, and runs
// migrations up to the latest version.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	db := &DB{DB: sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas applies essential SQLite PRAGMAs for performance and
// concurrency: WAL mode allows concurrent readers alongside a writer,
// busy_timeout avoids immediate "database is locked" errors under the
// concurrent-operator load described in spec §5.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

func (db *DB) migrationsFS() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

func (db *DB) migrateUp() error {
	sub, err := db.migrationsFS()
	if err != nil {
		return fmt.Errorf("sub migrations fs: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("new migrate instance: %w", err)
	}
	// Note: m.Close() is not called here because the sqlite database driver's
	// Close() method would close the underlying *sql.DB, which this DB wraps
	// and manages independently (same caveat as the teacher's migrate.go).
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
