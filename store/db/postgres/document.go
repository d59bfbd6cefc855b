package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/store"
)

// UpsertDocument inserts or updates a document by name.
func (d *DB) UpsertDocument(ctx context.Context, upsert *store.Document) (*store.Document, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `
		INSERT INTO document (name, path, content_hash, tags, links, backlinks, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (name)
		DO UPDATE SET
			path = EXCLUDED.path,
			content_hash = EXCLUDED.content_hash,
			tags = EXCLUDED.tags,
			links = EXCLUDED.links,
			backlinks = EXCLUDED.backlinks,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	err := d.db.QueryRowContext(ctx, stmt,
		upsert.Name,
		upsert.Path,
		upsert.ContentHash,
		pq.Array(stringArray(upsert.Tags)),
		pq.Array(stringArray(upsert.Links)),
		pq.Array(stringArray(upsert.Backlinks)),
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `
		SELECT id, name, path, content_hash, tags, links, backlinks, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name ASC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var doc store.Document
		var tags, links, backlinks pq.StringArray
		err := rows.Scan(
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
		doc.Tags = tags
		doc.Links = links
		doc.Backlinks = backlinks
		list = append(list, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteDocument deletes a document; chunks follow through ON DELETE CASCADE.
func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	stmt := `DELETE FROM document WHERE name = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.Name); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

func stringArray(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
