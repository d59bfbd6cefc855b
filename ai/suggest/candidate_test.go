package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Name
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Run("collapses duplicates keeping max score", func(t *testing.T) {
		merged := Merge([]Candidate{
			{Name: "A", Score: Score(0.5), Source: SourceRetrieval},
			{Name: "B", Score: Score(0.7), Source: SourceRetrieval},
			{Name: "A", Score: Score(0.9), Source: SourceRetrieval},
		})

		require.Equal(t, []string{"A", "B"}, names(merged))
		assert.Equal(t, float32(0.9), *merged[0].Score)
		assert.Equal(t, float32(0.7), *merged[1].Score)
	})

	t.Run("first occurrence fixes position", func(t *testing.T) {
		merged := Merge([]Candidate{
			{Name: "B", Score: Score(0.2)},
			{Name: "A", Score: Score(0.9)},
			{Name: "B", Score: Score(0.95)},
		})

		assert.Equal(t, []string{"B", "A"}, names(merged))
		assert.Equal(t, float32(0.95), *merged[0].Score)
	})

	t.Run("unions links and backlinks in first-seen order", func(t *testing.T) {
		merged := Merge([]Candidate{
			{Name: "A", Links: []string{"x", "y"}, Backlinks: []string{"p"}},
			{Name: "A", Links: []string{"y", "z"}, Backlinks: []string{"q", "p"}},
		})

		require.Len(t, merged, 1)
		assert.Equal(t, []string{"x", "y", "z"}, merged[0].Links)
		assert.Equal(t, []string{"p", "q"}, merged[0].Backlinks)
	})

	t.Run("retrieval provenance wins", func(t *testing.T) {
		merged := Merge([]Candidate{
			{Name: "A", Source: SourceGraph},
			{Name: "A", Score: Score(0.4), Source: SourceRetrieval},
		})

		require.Len(t, merged, 1)
		assert.Equal(t, SourceRetrieval, merged[0].Source)
		assert.Equal(t, float32(0.4), *merged[0].Score)
	})

	t.Run("scored beats scoreless regardless of order", func(t *testing.T) {
		merged := Merge([]Candidate{
			{Name: "A", Score: Score(0.3)},
			{Name: "A"},
		})

		require.Len(t, merged, 1)
		require.NotNil(t, merged[0].Score)
		assert.Equal(t, float32(0.3), *merged[0].Score)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []Candidate{
			{Name: "A", Score: Score(0.9), Links: []string{"x"}},
			{Name: "A", Score: Score(0.5), Links: []string{"y"}},
			{Name: "B", Backlinks: []string{"A"}},
		}
		once := Merge(in)
		twice := Merge(once)
		assert.Equal(t, once, twice)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Merge(nil))
	})
}

func TestExpand(t *testing.T) {
	t.Run("adds one-hop neighbors as scoreless graph candidates", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Score: Score(0.8), Source: SourceRetrieval, Links: []string{"B", "C"}, Backlinks: []string{"D"}},
		})

		require.Equal(t, []string{"A", "B", "C", "D"}, names(expanded))
		for _, c := range expanded[1:] {
			assert.Nil(t, c.Score, "%s must be scoreless", c.Name)
			assert.Equal(t, SourceGraph, c.Source)
		}
		assert.Equal(t, SourceRetrieval, expanded[0].Source)
	})

	t.Run("never overwrites an existing candidate", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Score: Score(0.8), Source: SourceRetrieval, Links: []string{"B"}},
			{Name: "B", Score: Score(0.6), Source: SourceRetrieval},
		})

		require.Equal(t, []string{"A", "B"}, names(expanded))
		assert.Equal(t, SourceRetrieval, expanded[1].Source)
		assert.Equal(t, float32(0.6), *expanded[1].Score)
	})

	t.Run("skips self references", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Links: []string{"A", "B"}},
		})
		assert.Equal(t, []string{"A", "B"}, names(expanded))
	})

	t.Run("skips empty names", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Links: []string{"", "B"}},
		})
		assert.Equal(t, []string{"A", "B"}, names(expanded))
	})

	t.Run("first discovery wins across documents", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Links: []string{"X"}},
			{Name: "B", Links: []string{"X", "Y"}},
		})
		assert.Equal(t, []string{"A", "B", "X", "Y"}, names(expanded))
	})

	t.Run("links precede backlinks within a document", func(t *testing.T) {
		expanded := Expand([]Candidate{
			{Name: "A", Links: []string{"L"}, Backlinks: []string{"K"}},
		})
		assert.Equal(t, []string{"A", "L", "K"}, names(expanded))
	})
}

func TestSeparate(t *testing.T) {
	registry := &stubRegistry{tags: []string{"math", "physics"}}

	tags, links := Separate([]Candidate{
		{Name: "Lecture 7", Score: Score(0.8)},
		{Name: "math", Score: Score(0.6)},
		{Name: "Eigenvalues", Source: SourceGraph},
		{Name: "physics", Source: SourceGraph},
	}, registry)

	assert.Equal(t, []string{"math", "physics"}, names(tags))
	assert.Equal(t, []string{"Lecture 7", "Eigenvalues"}, names(links))
}

func TestSeparate_EmptyInput(t *testing.T) {
	tags, links := Separate(nil, &stubRegistry{})
	assert.NotNil(t, tags)
	assert.NotNil(t, links)
	assert.Empty(t, tags)
	assert.Empty(t, links)
}

func TestSortByScore(t *testing.T) {
	candidates := []Candidate{
		{Name: "graph1", Source: SourceGraph},
		{Name: "low", Score: Score(0.2)},
		{Name: "high", Score: Score(0.9)},
		{Name: "graph2", Source: SourceGraph},
		{Name: "mid", Score: Score(0.5)},
	}

	SortByScore(candidates)

	assert.Equal(t, []string{"high", "mid", "low", "graph1", "graph2"}, names(candidates))
}

func TestSortByScore_StableTies(t *testing.T) {
	candidates := []Candidate{
		{Name: "first", Score: Score(0.5)},
		{Name: "second", Score: Score(0.5)},
		{Name: "third", Score: Score(0.5)},
	}

	SortByScore(candidates)

	assert.Equal(t, []string{"first", "second", "third"}, names(candidates))
}
