package store

import (
	"context"

	"github.com/pkg/errors"
)

// Chunk represents one embedded slice of a document.
type Chunk struct {
	ID         int32
	UID        string // stable external identifier
	DocumentID int32
	Position   int // chunk index within the document
	Content    string
	Embedding  []float32
	Model      string // embedding model that produced the vector
	CreatedTs  int64
	UpdatedTs  int64
}

// FindChunk is the find condition for chunks.
type FindChunk struct {
	ID         *int32
	UID        *string
	DocumentID *int32
	Model      *string
}

// ChunkWithScore is a vector search hit: the chunk, its parent document for
// graph metadata, and the cosine similarity score.
type ChunkWithScore struct {
	Chunk    *Chunk
	Document *Document
	Score    float32 // similarity in [0, 1], higher is more similar
}

// ChunkVectorSearchOptions represents the options for chunk vector search.
type ChunkVectorSearchOptions struct {
	Vector []float32
	Model  string
	Limit  int

	// MaxCandidates caps how many recent chunks the sqlite driver loads for
	// in-process similarity scoring. Ignored by postgres.
	MaxCandidates int
}

// Validate validates the ChunkVectorSearchOptions.
func (o *ChunkVectorSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.Errorf("vector cannot be empty")
	}
	if o.Model == "" {
		return errors.Errorf("model cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10 // Default limit
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// Validate validates the Chunk before persisting.
func (c *Chunk) Validate() error {
	if c.UID == "" {
		return errors.Errorf("chunk uid cannot be empty")
	}
	if c.DocumentID <= 0 {
		return errors.Errorf("invalid document id: %d", c.DocumentID)
	}
	if c.Content == "" {
		return errors.Errorf("chunk content cannot be empty")
	}
	if len(c.Embedding) == 0 {
		return errors.Errorf("chunk embedding cannot be empty")
	}
	if c.Model == "" {
		return errors.Errorf("chunk model cannot be empty")
	}
	return nil
}

// UpsertChunk inserts or updates a chunk by (document, position, model).
func (s *Store) UpsertChunk(ctx context.Context, upsert *Chunk) (*Chunk, error) {
	if err := upsert.Validate(); err != nil {
		return nil, err
	}
	return s.driver.UpsertChunk(ctx, upsert)
}

// ListChunks lists chunks.
func (s *Store) ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error) {
	return s.driver.ListChunks(ctx, find)
}

// DeleteChunksByDocument deletes all chunks of a document. Used when a
// changed document is re-chunked.
func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID int32) error {
	if documentID <= 0 {
		return errors.Errorf("invalid document id: %d", documentID)
	}
	return s.driver.DeleteChunksByDocument(ctx, documentID)
}

// ChunkVectorSearch performs vector similarity search over chunks.
func (s *Store) ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*ChunkWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.ChunkVectorSearch(ctx, opts)
}
