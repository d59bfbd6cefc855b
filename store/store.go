package store

import (
	"context"

	"github.com/hrygo/obsrag/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate brings the schema up to date. It is safe to call on every start;
// the statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Stats reports index size counters.
func (s *Store) Stats(ctx context.Context) (*IndexStats, error) {
	return s.driver.Stats(ctx)
}

// IndexStats are the index size counters exposed on /healthz and as gauges.
type IndexStats struct {
	Documents int64
	Chunks    int64
}
