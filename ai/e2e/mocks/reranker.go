package mocks

import (
	"context"
	"sort"
	"strings"

	"github.com/hrygo/obsrag/ai/core/reranker"
	"github.com/hrygo/obsrag/ai/suggest"
)

// MockReranker scores documents by substring rules instead of a model.
// MockReranker 通过子串规则而非模型为文档打分。
type MockReranker struct {
	enabled      bool
	defaultScore float32
	rules        []rerankRule
	err          error

	// Calls counts Rerank invocations.
	Calls int
}

type rerankRule struct {
	substring string
	score     float32
}

// NewMockReranker creates an enabled reranker scoring everything 0.5.
func NewMockReranker() *MockReranker {
	return &MockReranker{enabled: true, defaultScore: 0.5}
}

// WithScore assigns a score to documents containing the substring. Rules are
// checked in registration order, first match wins.
func (m *MockReranker) WithScore(substring string, score float32) *MockReranker {
	m.rules = append(m.rules, rerankRule{substring: substring, score: score})
	return m
}

// WithDefaultScore changes the score for documents no rule matches.
func (m *MockReranker) WithDefaultScore(score float32) *MockReranker {
	m.defaultScore = score
	return m
}

// WithError makes every call fail.
func (m *MockReranker) WithError(err error) *MockReranker {
	m.err = err
	return m
}

// Disabled turns the reranker off; the engine then passes candidates through.
func (m *MockReranker) Disabled() *MockReranker {
	m.enabled = false
	return m
}

// Rerank implements the suggest.Reranker interface.
func (m *MockReranker) Rerank(_ context.Context, _ string, documents []string, topN int) ([]reranker.Result, error) {
	m.Calls++
	if m.err != nil {
		return nil, m.err
	}

	results := make([]reranker.Result, 0, len(documents))
	for i, doc := range documents {
		score := m.defaultScore
		for _, rule := range m.rules {
			if strings.Contains(doc, rule.substring) {
				score = rule.score
				break
			}
		}
		results = append(results, reranker.Result{Index: i, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// IsEnabled implements the suggest.Reranker interface.
func (m *MockReranker) IsEnabled() bool {
	return m.enabled
}

var _ suggest.Reranker = (*MockReranker)(nil)
