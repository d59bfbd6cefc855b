package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error
	Stats(ctx context.Context) (*IndexStats, error)

	UpsertDocument(ctx context.Context, upsert *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocument(ctx context.Context, delete *DeleteDocument) error

	UpsertChunk(ctx context.Context, upsert *Chunk) (*Chunk, error)
	ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID int32) error
	ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*ChunkWithScore, error)
}
