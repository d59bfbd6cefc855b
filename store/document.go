package store

import (
	"context"

	"github.com/pkg/errors"
)

// Document represents one indexed vault note with its graph metadata.
// Backlinks are materialized at index-build time by inverting the outgoing
// links of the whole vault, so query-time reads need no graph traversal.
type Document struct {
	ID          int32
	Name        string   // note name without extension, unique in the vault
	Path        string   // vault-relative file path
	ContentHash string   // SHA-256 of the raw file content
	Tags        []string // tag names attached to the note
	Links       []string // outgoing wikilink targets
	Backlinks   []string // notes that link to this one
	CreatedTs   int64
	UpdatedTs   int64
}

// FindDocument is the find condition for documents.
type FindDocument struct {
	ID   *int32
	Name *string
}

// DeleteDocument is the delete condition for documents. Deleting a document
// cascades to its chunks.
type DeleteDocument struct {
	Name string
}

// Validate validates the Document before persisting.
func (d *Document) Validate() error {
	if d.Name == "" {
		return errors.Errorf("document name cannot be empty")
	}
	if d.Path == "" {
		return errors.Errorf("document path cannot be empty")
	}
	return nil
}

// UpsertDocument inserts or updates a document by name.
func (s *Store) UpsertDocument(ctx context.Context, upsert *Document) (*Document, error) {
	if err := upsert.Validate(); err != nil {
		return nil, err
	}
	return s.driver.UpsertDocument(ctx, upsert)
}

// GetDocument gets a single document, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, find *FindDocument) (*Document, error) {
	list, err := s.driver.ListDocuments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListDocuments lists documents.
func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

// DeleteDocument deletes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, delete *DeleteDocument) error {
	if delete.Name == "" {
		return errors.Errorf("document name cannot be empty")
	}
	return s.driver.DeleteDocument(ctx, delete)
}
