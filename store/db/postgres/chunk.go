package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/store"
)

// UpsertChunk inserts or updates a chunk by (document, position, model).
func (d *DB) UpsertChunk(ctx context.Context, upsert *store.Chunk) (*store.Chunk, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `
		INSERT INTO chunk (uid, document_id, position, content, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (document_id, position, model)
		DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, uid, created_ts, updated_ts
	`

	vector := pgvector.NewVector(upsert.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UID,
		upsert.DocumentID,
		upsert.Position,
		upsert.Content,
		vector,
		upsert.Model,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.UID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert chunk")
	}

	return upsert, nil
}

// ListChunks lists chunks.
func (d *DB) ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, uid, document_id, position, content, embedding, model, created_ts, updated_ts
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY document_id ASC, position ASC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.Chunk{}
	for rows.Next() {
		var chunk store.Chunk
		var vector pgvector.Vector
		err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.Content,
			&vector,
			&chunk.Model,
			&chunk.CreatedTs,
			&chunk.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		chunk.Embedding = vector.Slice()
		list = append(list, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteChunksByDocument deletes all chunks of a document.
func (d *DB) DeleteChunksByDocument(ctx context.Context, documentID int32) error {
	stmt := `DELETE FROM chunk WHERE document_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, documentID); err != nil {
		return errors.Wrap(err, "failed to delete chunks")
	}
	return nil
}

// ChunkVectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ASC returns the most similar chunks first.
func (d *DB) ChunkVectorSearch(ctx context.Context, opts *store.ChunkVectorSearchOptions) ([]*store.ChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			c.id, c.uid, c.document_id, c.position, c.content, c.model, c.created_ts, c.updated_ts,
			d.id, d.name, d.path, d.content_hash, d.tags, d.links, d.backlinks, d.created_ts, d.updated_ts,
			1 - (c.embedding <=> ` + placeholder(1) + `) AS score
		FROM chunk c
		INNER JOIN document d ON c.document_id = d.id
		WHERE c.model = ` + placeholder(2) + `
		ORDER BY c.embedding <=> ` + placeholder(3) + `
		LIMIT ` + placeholder(4)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, opts.Model, vector, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search chunks")
	}
	defer rows.Close()

	results := []*store.ChunkWithScore{}
	for rows.Next() {
		var result store.ChunkWithScore
		var chunk store.Chunk
		var doc store.Document
		var tags, links, backlinks pq.StringArray

		err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.Content,
			&chunk.Model,
			&chunk.CreatedTs,
			&chunk.UpdatedTs,
			&doc.ID,
			&doc.Name,
			&doc.Path,
			&doc.ContentHash,
			&tags,
			&links,
			&backlinks,
			&doc.CreatedTs,
			&doc.UpdatedTs,
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}

		doc.Tags = tags
		doc.Links = links
		doc.Backlinks = backlinks
		result.Chunk = &chunk
		result.Document = &doc
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
