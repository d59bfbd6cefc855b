package mocks

import (
	"context"
	"strings"

	"github.com/hrygo/obsrag/ai/core/embedding"
)

// topicAxes maps keyword groups onto vector dimensions. Texts about the same
// topic get nearly parallel vectors, unrelated texts nearly orthogonal ones,
// which is all the retrieval pipeline needs from an embedding.
var topicAxes = [][]string{
	{"matrix", "eigenvalue", "algebra", "determinant", "vector"},
	{"quantum", "momentum", "particle", "force"},
	{"pasta", "recipe", "sauce", "oven"},
}

// MockEmbedder embeds text by counting topic keywords.
// MockEmbedder 通过统计主题关键词来生成向量。
type MockEmbedder struct {
	// Calls counts EmbedBatch invocations.
	Calls int
}

// NewMockEmbedder creates a keyword-axis embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed implements the embedding.Service interface.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements the embedding.Service interface.
func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		// The last dimension is a small constant so no vector is ever zero.
		vec := make([]float32, len(topicAxes)+1)
		vec[len(topicAxes)] = 0.05
		for axis, words := range topicAxes {
			for _, w := range words {
				vec[axis] += float32(strings.Count(lower, w))
			}
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions implements the embedding.Service interface.
func (m *MockEmbedder) Dimensions() int {
	return len(topicAxes) + 1
}

var _ embedding.Service = (*MockEmbedder)(nil)
