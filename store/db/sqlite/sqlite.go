// Package sqlite implements the store driver on a local SQLite file.
//
// SQLite is the default backend for single-machine use. Vectors are stored
// as little-endian float32 BLOBs and similarity is computed in the
// application layer over a bounded candidate set; see chunk.go. Installs
// that outgrow this should switch to the postgres driver, which pushes the
// search into pgvector.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/obsrag/internal/profile"
	"github.com/hrygo/obsrag/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect with some sane settings:
	// - No foreign key constraints: disabled by default, but be explicit to
	//   prevent surprises on SQLite upgrades.
	// - Journal mode set to WAL: the recommended journal mode for most
	//   applications as it prevents locking issues.
	//
	// Note: with the `modernc.org/sqlite` driver, each pragma must be
	// prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL; the index writer
	// and the query path otherwise contend on the file lock.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='document')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate applies the latest schema. All statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

func (d *DB) Stats(ctx context.Context) (*store.IndexStats, error) {
	stats := &store.IndexStats{}
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document").Scan(&stats.Documents); err != nil {
		return nil, errors.Wrap(err, "failed to count documents")
	}
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk").Scan(&stats.Chunks); err != nil {
		return nil, errors.Wrap(err, "failed to count chunks")
	}
	return stats, nil
}
