package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/store"
)

// UpsertDocument inserts or updates a document by name.
func (d *DB) UpsertDocument(ctx context.Context, upsert *store.Document) (*store.Document, error) {
	tags, links, backlinks, err := marshalDocumentLists(upsert)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `INSERT INTO document (name, path, content_hash, tags, links, backlinks, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			path = excluded.path,
			content_hash = excluded.content_hash,
			tags = excluded.tags,
			links = excluded.links,
			backlinks = excluded.backlinks,
			updated_ts = excluded.updated_ts
		RETURNING id, created_ts, updated_ts`

	err = d.db.QueryRowContext(ctx, stmt,
		upsert.Name,
		upsert.Path,
		upsert.ContentHash,
		tags,
		links,
		backlinks,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert document")
	}

	return upsert, nil
}

// ListDocuments lists documents.
func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "name = ?"), append(args, *find.Name)
	}

	query := `SELECT id, name, path, content_hash, tags, links, backlinks, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteDocument deletes a document and its chunks.
func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	var id int32
	err := d.db.QueryRowContext(ctx, "SELECT id FROM document WHERE name = ?", delete.Name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return errors.Wrap(err, "failed to find document for delete")
	}

	if _, err := d.db.ExecContext(ctx, "DELETE FROM chunk WHERE document_id = ?", id); err != nil {
		return errors.Wrap(err, "failed to delete document chunks")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

type scanFunc func(dest ...any) error

func scanDocument(scan scanFunc) (*store.Document, error) {
	var doc store.Document
	var tags, links, backlinks []byte
	err := scan(
		&doc.ID,
		&doc.Name,
		&doc.Path,
		&doc.ContentHash,
		&tags,
		&links,
		&backlinks,
		&doc.CreatedTs,
		&doc.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan document")
	}
	if err := unmarshalDocumentLists(&doc, tags, links, backlinks); err != nil {
		return nil, err
	}
	return &doc, nil
}

func marshalDocumentLists(doc *store.Document) (tags, links, backlinks []byte, err error) {
	if tags, err = json.Marshal(emptyIfNil(doc.Tags)); err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to marshal document tags")
	}
	if links, err = json.Marshal(emptyIfNil(doc.Links)); err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to marshal document links")
	}
	if backlinks, err = json.Marshal(emptyIfNil(doc.Backlinks)); err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to marshal document backlinks")
	}
	return tags, links, backlinks, nil
}

func unmarshalDocumentLists(doc *store.Document, tags, links, backlinks []byte) error {
	if err := json.Unmarshal(tags, &doc.Tags); err != nil {
		return errors.Wrap(err, "failed to unmarshal document tags")
	}
	if err := json.Unmarshal(links, &doc.Links); err != nil {
		return errors.Wrap(err, "failed to unmarshal document links")
	}
	if err := json.Unmarshal(backlinks, &doc.Backlinks); err != nil {
		return errors.Wrap(err, "failed to unmarshal document backlinks")
	}
	return nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
