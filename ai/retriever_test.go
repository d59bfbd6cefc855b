package ai

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/internal/profile"
	"github.com/hrygo/obsrag/store"
	"github.com/hrygo/obsrag/store/db/sqlite"
)

const testModel = "mock-embed"

// fixedEmbedder returns canned vectors and counts calls so cache behavior
// is observable.
type fixedEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return 3 }

func newSeededStore(t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "retriever.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	docs := []struct {
		doc       store.Document
		embedding []float32
		content   string
	}{
		{
			doc: store.Document{
				Name: "Lecture 7", Path: "Lecture 7.md", ContentHash: "h1",
				Links:     []string{"math"},
				Backlinks: []string{"Spectral Theorems"},
			},
			embedding: []float32{1, 0, 0},
			content:   "Eigenvalues of symmetric matrices.",
		},
		{
			doc: store.Document{
				Name: "Pasta", Path: "Pasta.md", ContentHash: "h2",
			},
			embedding: []float32{0.3, 0.95, 0},
			content:   "Fresh pasta dough ratios.",
		},
	}
	for i, d := range docs {
		created, err := st.UpsertDocument(ctx, &d.doc)
		require.NoError(t, err)
		_, err = st.UpsertChunk(ctx, &store.Chunk{
			UID:        created.Name,
			DocumentID: created.ID,
			Position:   i,
			Content:    d.content,
			Embedding:  d.embedding,
			Model:      testModel,
		})
		require.NoError(t, err)
	}
	return st
}

func TestRetriever_MapsHits(t *testing.T) {
	st := newSeededStore(t)
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"eigenvalue homework": {1, 0, 0},
	}}
	r := NewRetriever(embedder, st, testModel)

	candidates, err := r.Retrieve(context.Background(), "eigenvalue homework", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "Lecture 7", first.Name)
	assert.Equal(t, "Eigenvalues of symmetric matrices.", first.Text)
	assert.Equal(t, suggest.SourceRetrieval, first.Source)
	require.NotNil(t, first.Score)
	assert.InDelta(t, 1.0, *first.Score, 1e-4)
	assert.Equal(t, []string{"math"}, first.Links)
	assert.Equal(t, []string{"Spectral Theorems"}, first.Backlinks)

	assert.Equal(t, "Pasta", candidates[1].Name)
	require.NotNil(t, candidates[1].Score)
	assert.Less(t, *candidates[1].Score, *first.Score)
}

func TestRetriever_CachesQueryEmbeddings(t *testing.T) {
	st := newSeededStore(t)
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"eigenvalue homework": {1, 0, 0},
		"pasta tonight":       {0, 1, 0},
	}}
	r := NewRetriever(embedder, st, testModel)
	ctx := context.Background()

	_, err := r.Retrieve(ctx, "eigenvalue homework", 3)
	require.NoError(t, err)
	_, err = r.Retrieve(ctx, "eigenvalue homework", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls, "identical query must hit the vector cache")

	_, err = r.Retrieve(ctx, "pasta tonight", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls)
}

func TestRetriever_BlankQuery(t *testing.T) {
	st := newSeededStore(t)
	embedder := &fixedEmbedder{}
	r := NewRetriever(embedder, st, testModel)

	candidates, err := r.Retrieve(context.Background(), "   \n", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Zero(t, embedder.calls)
}

func TestRetriever_EmbedderFailure(t *testing.T) {
	st := newSeededStore(t)
	embedder := &fixedEmbedder{err: errors.New("quota exceeded")}
	r := NewRetriever(embedder, st, testModel)

	_, err := r.Retrieve(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}
