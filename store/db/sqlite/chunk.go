package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/store"
)

// maxSearchCandidates bounds how many chunks a single search loads into
// memory for similarity scoring.
const maxSearchCandidates = 500

// float32ArrayToBLOB converts a []float32 to a little-endian BLOB.
func float32ArrayToBLOB(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf, nil
}

// blobToFloat32Array converts a BLOB back to a float32 array.
// This is the inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid BLOB length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// UpsertChunk inserts or updates a chunk by (document, position, model).
func (d *DB) UpsertChunk(ctx context.Context, upsert *store.Chunk) (*store.Chunk, error) {
	vectorBLOB, err := float32ArrayToBLOB(upsert.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert embedding vector to BLOB")
	}

	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `INSERT INTO chunk (uid, document_id, position, content, embedding, model, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id, position, model) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			updated_ts = excluded.updated_ts
		RETURNING id, uid, created_ts, updated_ts`

	err = d.db.QueryRowContext(ctx, stmt,
		upsert.UID,
		upsert.DocumentID,
		upsert.Position,
		upsert.Content,
		vectorBLOB,
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = ?"), append(args, *find.DocumentID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `SELECT id, uid, document_id, position, content, embedding, model, created_ts, updated_ts
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY document_id ASC, position ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.Chunk{}
	for rows.Next() {
		var chunk store.Chunk
		var vectorBLOB []byte
		err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.Content,
			&vectorBLOB,
			&chunk.Model,
			&chunk.CreatedTs,
			&chunk.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}

		chunk.Embedding, err = blobToFloat32Array(vectorBLOB)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert embedding BLOB to array")
		}

		list = append(list, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteChunksByDocument deletes all chunks of a document.
func (d *DB) DeleteChunksByDocument(ctx context.Context, documentID int32) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM chunk WHERE document_id = ?", documentID); err != nil {
		return errors.Wrap(err, "failed to delete chunks")
	}
	return nil
}

// ChunkVectorSearch performs vector similarity search with application-layer
// cosine similarity. SQLite has no native vector type, so a bounded set of
// recent candidates is loaded and scored in Go. O(n) over the candidate set;
// fine at personal-vault scale, the postgres driver covers the rest.
func (d *DB) ChunkVectorSearch(ctx context.Context, opts *store.ChunkVectorSearchOptions) ([]*store.ChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	candidateLimit := opts.MaxCandidates
	if candidateLimit <= 0 {
		candidateLimit = limit * 5
	}
	if candidateLimit > maxSearchCandidates {
		candidateLimit = maxSearchCandidates
	}
	if candidateLimit < limit {
		candidateLimit = limit
	}

	query := `SELECT
			c.id, c.uid, c.document_id, c.position, c.content, c.embedding, c.model, c.created_ts, c.updated_ts,
			d.id, d.name, d.path, d.content_hash, d.tags, d.links, d.backlinks, d.created_ts, d.updated_ts
		FROM chunk c
		INNER JOIN document d ON c.document_id = d.id
		WHERE c.model = ?
		ORDER BY c.updated_ts DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, opts.Model, candidateLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search chunks")
	}
	defer rows.Close()

	type candidate struct {
		chunk     *store.Chunk
		document  *store.Document
		embedding []float32
	}
	candidates := []candidate{}

	for rows.Next() {
		var chunk store.Chunk
		var doc store.Document
		var vectorBLOB []byte
		var tags, links, backlinks []byte

		err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.Content,
			&vectorBLOB,
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
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search candidate")
		}

		embedding, err := blobToFloat32Array(vectorBLOB)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert embedding BLOB to array")
		}
		if err := unmarshalDocumentLists(&doc, tags, links, backlinks); err != nil {
			return nil, err
		}

		candidates = append(candidates, candidate{
			chunk:     &chunk,
			document:  &doc,
			embedding: embedding,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]*store.ChunkWithScore, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, &store.ChunkWithScore{
			Chunk:    cand.chunk,
			Document: cand.document,
			Score:    cosineSimilarity(opts.Vector, cand.embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
