// Package indexer builds and maintains the vector index from a vault corpus.
//
// Indexing is incremental: a note whose content hash matches the stored
// document is not re-embedded, and documents without a matching note are
// removed. Embedding runs concurrently across notes, bounded by a weighted
// semaphore so a large vault cannot flood the provider.
package indexer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/store"
	"github.com/hrygo/obsrag/vault"
)

// Config tunes chunking and embedding concurrency.
type Config struct {
	// ChunkSize is the target chunk length in runes.
	ChunkSize int
	// ChunkOverlap is how many runes consecutive chunks share.
	ChunkOverlap int
	// Concurrency bounds simultaneous embedding calls.
	Concurrency int
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = defaultChunkOverlap
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Summary reports what one index run did.
type Summary struct {
	Indexed  int // notes embedded and written
	Skipped  int // notes unchanged since the last run
	Removed  int // stale documents deleted
	Chunks   int // chunks written for indexed notes
	Duration time.Duration
}

// Indexer writes vault notes into the vector store.
type Indexer struct {
	store    *store.Store
	embedder embedding.Service
	model    string
	cfg      Config
}

// New creates an indexer. model tags every chunk so queries embedded with a
// different model never match against these vectors.
func New(st *store.Store, embedder embedding.Service, model string, cfg Config) *Indexer {
	cfg.applyDefaults()
	return &Indexer{
		store:    st,
		embedder: embedder,
		model:    model,
		cfg:      cfg,
	}
}

// Run synchronizes the store with the corpus and returns a summary.
// The first embedding or store failure aborts the run; documents already
// written stay written, so a retry picks up where this run stopped.
func (ix *Indexer) Run(ctx context.Context, corpus *vault.Corpus) (*Summary, error) {
	started := time.Now()

	existing, err := ix.store.ListDocuments(ctx, &store.FindDocument{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list indexed documents")
	}
	byName := make(map[string]*store.Document, len(existing))
	for _, doc := range existing {
		byName[doc.Name] = doc
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		summary  = &Summary{}
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	sem := semaphore.NewWeighted(int64(ix.cfg.Concurrency))
	for _, note := range corpus.Notes {
		prev := byName[note.Name]
		if prev != nil && prev.ContentHash == note.Hash {
			// Backlinks shift when other notes change, so graph metadata
			// is refreshed even when this note's content is untouched.
			if err := ix.refreshMetadata(ctx, prev, note); err != nil {
				fail(err)
				break
			}
			summary.Skipped++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(note *vault.Note) {
			defer sem.Release(1)
			written, err := ix.indexNote(ctx, note)
			if err != nil {
				fail(errors.Wrapf(err, "failed to index note %q", note.Name))
				return
			}
			mu.Lock()
			summary.Indexed++
			summary.Chunks += written
			mu.Unlock()
		}(note)
	}

	// Join all in-flight workers regardless of cancellation.
	if err := sem.Acquire(context.Background(), int64(ix.cfg.Concurrency)); err == nil {
		sem.Release(int64(ix.cfg.Concurrency))
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	removed, err := ix.removeStale(ctx, existing, corpus)
	if err != nil {
		return nil, err
	}
	summary.Removed = removed
	summary.Duration = time.Since(started)

	slog.Info("index build completed",
		"indexed", summary.Indexed,
		"skipped", summary.Skipped,
		"removed", summary.Removed,
		"chunks", summary.Chunks,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// indexNote embeds one note and replaces its stored chunks. Embedding runs
// before any write so a provider failure leaves the previous index intact.
func (ix *Indexer) indexNote(ctx context.Context, note *vault.Note) (int, error) {
	pieces := splitChunks(note.Content, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)

	var vectors [][]float32
	if len(pieces) > 0 {
		var err error
		vectors, err = ix.embedder.EmbedBatch(ctx, pieces)
		if err != nil {
			return 0, errors.Wrap(err, "failed to embed chunks")
		}
		if len(vectors) != len(pieces) {
			return 0, errors.Errorf("embedding count mismatch: %d chunks, %d vectors", len(pieces), len(vectors))
		}
	}

	doc, err := ix.store.UpsertDocument(ctx, documentFromNote(note))
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert document")
	}
	if err := ix.store.DeleteChunksByDocument(ctx, doc.ID); err != nil {
		return 0, errors.Wrap(err, "failed to clear old chunks")
	}

	for i, piece := range pieces {
		chunk := &store.Chunk{
			UID:        shortuuid.New(),
			DocumentID: doc.ID,
			Position:   i,
			Content:    piece,
			Embedding:  vectors[i],
			Model:      ix.model,
		}
		if _, err := ix.store.UpsertChunk(ctx, chunk); err != nil {
			return 0, errors.Wrapf(err, "failed to upsert chunk %d", i)
		}
	}
	return len(pieces), nil
}

// refreshMetadata rewrites the document row when the link graph around an
// unchanged note moved. Chunks and embeddings are left alone.
func (ix *Indexer) refreshMetadata(ctx context.Context, prev *store.Document, note *vault.Note) error {
	if slices.Equal(prev.Tags, note.Tags) &&
		slices.Equal(prev.Links, note.Links) &&
		slices.Equal(prev.Backlinks, note.Backlinks) {
		return nil
	}
	if _, err := ix.store.UpsertDocument(ctx, documentFromNote(note)); err != nil {
		return errors.Wrapf(err, "failed to refresh metadata for %q", note.Name)
	}
	return nil
}

func (ix *Indexer) removeStale(ctx context.Context, existing []*store.Document, corpus *vault.Corpus) (int, error) {
	removed := 0
	for _, doc := range existing {
		if corpus.Get(doc.Name) != nil {
			continue
		}
		if err := ix.store.DeleteDocument(ctx, &store.DeleteDocument{Name: doc.Name}); err != nil {
			return removed, errors.Wrapf(err, "failed to remove stale document %q", doc.Name)
		}
		slog.Debug("removed stale document", "name", doc.Name)
		removed++
	}
	return removed, nil
}

func documentFromNote(note *vault.Note) *store.Document {
	return &store.Document{
		Name:        note.Name,
		Path:        note.Path,
		ContentHash: note.Hash,
		Tags:        note.Tags,
		Links:       note.Links,
		Backlinks:   note.Backlinks,
	}
}
