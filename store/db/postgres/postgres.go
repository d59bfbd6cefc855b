// Package postgres implements the store driver on PostgreSQL with pgvector.
// Similarity search runs in the database through the <=> cosine distance
// operator, so it scales past what the sqlite driver's in-process scoring
// handles.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"strconv"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/internal/profile"
	"github.com/hrygo/obsrag/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db: %s", profile.DSN)
	}

	driver := DB{db: db, profile: profile}

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
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'document')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate applies the latest schema. Requires the pgvector extension to be
// installable by the connecting role.
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

// placeholder returns the n-th positional parameter.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
