package ai

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/cache"
	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/store"
)

const (
	queryCacheSize = 256
	queryCacheTTL  = 10 * time.Minute
)

// Retriever embeds a query and searches the chunk index, mapping hits to
// suggestion candidates with their document's graph metadata attached.
// Query vectors are cached so repeated suggestions for the same text (the
// watch loop retrying, a user iterating on one note) embed only once.
type Retriever struct {
	embedder embedding.Service
	store    *store.Store
	model    string
	queries  *cache.LRUCache[string, []float32]
}

// NewRetriever creates a retriever over the given store. model names the
// embedding model whose vectors are searched; it must match what the
// indexer wrote.
func NewRetriever(embedder embedding.Service, st *store.Store, model string) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    st,
		model:    model,
		queries:  cache.NewLRUCache[string, []float32](queryCacheSize, queryCacheTTL),
	}
}

// Retrieve returns up to topK chunk candidates ordered by similarity.
// A blank query has nothing to embed and returns no candidates; the engine
// treats that as an empty first layer, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]suggest.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return []suggest.Candidate{}, nil
	}

	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	hits, err := r.store.ChunkVectorSearch(ctx, &store.ChunkVectorSearchOptions{
		Vector: vector,
		Model:  r.model,
		Limit:  topK,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search chunks")
	}

	candidates := make([]suggest.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, suggest.Candidate{
			Name:      hit.Document.Name,
			Text:      hit.Chunk.Content,
			Score:     suggest.Score(hit.Score),
			Source:    suggest.SourceRetrieval,
			Links:     hit.Document.Links,
			Backlinks: hit.Document.Backlinks,
		})
	}
	return candidates, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := r.model + "\x00" + query
	if vector, ok := r.queries.Get(key); ok {
		return vector, nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	r.queries.Set(key, vector, 0)
	return vector, nil
}
