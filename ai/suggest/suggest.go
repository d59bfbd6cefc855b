// Package suggest implements the two-layer tag and link suggestion engine.
//
// Layer 1 runs retrieval over the vector index, reranks the hits with a
// cross-encoder, merges chunk metadata per document, expands one hop through
// the link graph, and separates the result into tag and link suggestions by
// registry membership. Layer 2 is a confidence-gated language-model fallback:
// it only runs when Layer 1 produced too few tags or none of them scored
// convincingly, and its failures never fail the request.
//
// The engine is stateless across requests. The registry, retriever, reranker
// and LLM handles it holds are shared and read-only after construction, so a
// single Engine may serve concurrent requests as long as those backends are
// safe for concurrent use.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/obsrag/ai/core/llm"
	"github.com/hrygo/obsrag/ai/core/reranker"
	"github.com/hrygo/obsrag/ai/metrics"
)

// Registry is the session-scoped set of known tag names the separator
// classifies against. ContextFor returns the document names referencing a
// tag; it returns an empty set rather than failing for unknown tags.
type Registry interface {
	Contains(name string) bool
	ContextFor(tag string) []string
	Names() []string
	Len() int
}

// Retriever issues a similarity query against the vector index. Returned
// candidates carry SourceRetrieval and the underlying search order; the
// engine does not re-sort them before reranking.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Candidate, error)
}

// Reranker scores (query, document) pairs with a cross-encoder. When
// IsEnabled reports false the engine skips the call and candidates pass
// through on their retrieval scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]reranker.Result, error)
	IsEnabled() bool
}

// ChatCompleter is the slice of the LLM service the fallback layer uses.
type ChatCompleter interface {
	ChatJSON(ctx context.Context, messages []llm.Message, format *llm.ResponseSchema) (string, *llm.LLMCallStats, error)
}

// Config holds the engine policy knobs. Zero values fall back to defaults.
type Config struct {
	TopK            int     // candidates fetched from the index per query
	TopN            int     // candidates kept after reranking
	MinTags         int     // fewer Layer-1 tags than this triggers the fallback
	MinConfidence   float32 // lower max retrieval tag score than this triggers the fallback
	PromptTextLimit int     // note text cap in the fallback prompt, runes
	LLMModel        string  // model label for token metrics
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TopK:            10,
		TopN:            5,
		MinTags:         3,
		MinConfidence:   0.4,
		PromptTextLimit: 3000,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.TopN <= 0 {
		c.TopN = def.TopN
	}
	if c.MinTags <= 0 {
		c.MinTags = def.MinTags
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.PromptTextLimit <= 0 {
		c.PromptTextLimit = def.PromptTextLimit
	}
}

// Request carries one suggestion query.
type Request struct {
	// Text is the note content to suggest tags and links for.
	Text string
	// TopK overrides the configured retrieval depth when positive.
	TopK int
	// Filename optionally names the originating file. It only biases the
	// fallback prompt toward a course or context tag; retrieval ignores it.
	Filename string
}

// Result is the engine's answer: ordered tag and link suggestions, plus the
// model's decision when the fallback ran and parsed cleanly.
type Result struct {
	Tags     []Candidate
	Links    []Candidate
	Decision *TagDecision
}

// Engine wires the pipeline stages together. Construct it with NewEngine.
type Engine struct {
	cfg       Config
	retriever Retriever
	reranker  Reranker
	registry  Registry
	llm       ChatCompleter
	metrics   *metrics.PrometheusExporter
}

// NewEngine creates a suggestion engine. The retriever and registry are
// mandatory; chat may be nil, which disables the fallback layer. exporter may
// be nil, which disables instrumentation.
func NewEngine(cfg Config, retriever Retriever, rr Reranker, registry Registry, chat ChatCompleter, exporter *metrics.PrometheusExporter) (*Engine, error) {
	if retriever == nil {
		return nil, &ConfigurationError{Resource: "vector index retriever"}
	}
	if registry == nil {
		return nil, &ConfigurationError{Resource: "tag registry"}
	}
	cfg.applyDefaults()
	return &Engine{
		cfg:       cfg,
		retriever: retriever,
		reranker:  rr,
		registry:  registry,
		llm:       chat,
		metrics:   exporter,
	}, nil
}

// Registry exposes the engine's tag registry, for callers that render tag
// context (the API tag listing, the note writer).
func (e *Engine) Registry() Registry {
	return e.registry
}

// Suggest runs the full pipeline for one request. Mandatory-stage failures
// (retrieval, rerank) return an error and no partial result; fallback-stage
// failures are absorbed and leave Result.Decision nil.
func (e *Engine) Suggest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	requestID := shortuuid.New()

	topK := req.TopK
	if topK < 0 {
		return nil, fmt.Errorf("top_k must be a positive integer, got %d", topK)
	}
	if topK == 0 {
		topK = e.cfg.TopK
	}

	retrieveStart := time.Now()
	hits, err := e.retriever.Retrieve(ctx, req.Text, topK)
	e.observeStage("retrieve", time.Since(retrieveStart))
	if err != nil {
		e.recordRequest("error", time.Since(start))
		slog.ErrorContext(ctx, "suggest_retrieval_failed", "request_id", requestID, "error", err)
		return nil, &RetrievalError{Err: err}
	}

	rerankStart := time.Now()
	refined, err := e.rerankCandidates(ctx, req.Text, hits)
	e.observeStage("rerank", time.Since(rerankStart))
	if err != nil {
		e.recordRequest("error", time.Since(start))
		slog.ErrorContext(ctx, "suggest_rerank_failed", "request_id", requestID, "error", err)
		return nil, &RerankError{Err: err}
	}

	merged := Merge(refined)
	expanded := Expand(merged)
	tags, links := Separate(expanded, e.registry)
	SortByScore(tags)
	SortByScore(links)

	result := &Result{Tags: tags, Links: links}

	reason, triggered := e.fallbackReason(tags)
	if triggered {
		e.recordFallback(reason)
		llmStart := time.Now()
		decision := e.runFallback(ctx, requestID, req, tags)
		e.observeStage("llm", time.Since(llmStart))
		if decision != nil {
			result.Decision = decision
			result.Tags = mergeDecision(tags, decision)
		}
	}

	e.recordRequest("ok", time.Since(start))
	slog.InfoContext(ctx, "suggest_completed",
		"request_id", requestID,
		"retrieved", len(hits),
		"refined", len(refined),
		"tags", len(result.Tags),
		"links", len(result.Links),
		"fallback", triggered,
		"fallback_reason", reason,
		"llm_decision", result.Decision != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// rerankCandidates scores candidates against the query and keeps the
// strongest. Cross-encoder scores replace retrieval similarity outright; the
// two are not comparable. Candidates scoring zero or below are judged
// irrelevant and dropped, so fewer than topN may survive, possibly none.
// With the reranker absent or disabled, candidates pass through on their
// retrieval scores under the same filter.
func (e *Engine) rerankCandidates(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}
	if e.reranker == nil || !e.reranker.IsEnabled() {
		return topNByScore(candidates, e.cfg.TopN), nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
		if documents[i] == "" {
			documents[i] = c.Name
		}
	}

	results, err := e.reranker.Rerank(ctx, query, documents, len(documents))
	if err != nil {
		return nil, err
	}

	scored := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		c := candidates[r.Index]
		c.Score = Score(r.Score)
		scored = append(scored, c)
	}
	return topNByScore(scored, e.cfg.TopN), nil
}

// topNByScore drops non-positive scores, sorts descending and truncates.
func topNByScore(candidates []Candidate, topN int) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score == nil || *c.Score <= 0 {
			continue
		}
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].Score > *kept[j].Score
	})
	if topN > 0 && len(kept) > topN {
		kept = kept[:topN]
	}
	return kept
}

// fallbackReason evaluates the Layer-2 trigger policy once per request:
// fire when Layer 1 produced fewer tags than MinTags, or when no
// retrieval-scored tag reaches MinConfidence. An all-graph tag set has no
// scores at all and counts as low confidence.
func (e *Engine) fallbackReason(tags []Candidate) (string, bool) {
	if len(tags) < e.cfg.MinTags {
		return "low_tag_count", true
	}
	best, ok := maxRetrievalScore(tags)
	if !ok || best < e.cfg.MinConfidence {
		return "low_confidence", true
	}
	return "", false
}

func maxRetrievalScore(tags []Candidate) (float32, bool) {
	var best float32
	found := false
	for _, c := range tags {
		if c.Source != SourceRetrieval || c.Score == nil {
			continue
		}
		if !found || *c.Score > best {
			best = *c.Score
			found = true
		}
	}
	return best, found
}

// mergeDecision unions the model-chosen tags into the Layer-1 tag list,
// deduplicating by name. Fallback tags carry SourceLLM and no score; whether
// a tag was model-invented rather than registry-backed is visible on the
// decision itself.
func mergeDecision(tags []Candidate, decision *TagDecision) []Candidate {
	out := make([]Candidate, len(tags))
	copy(out, tags)
	seen := make(map[string]struct{}, len(tags))
	for _, c := range tags {
		seen[c.Name] = struct{}{}
	}
	for _, group := range [][]string{decision.ExistingTags, decision.NewTags} {
		for _, name := range group {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, Candidate{Name: name, Source: SourceLLM})
		}
	}
	return out
}

func (e *Engine) observeStage(stage string, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveSuggestStage(stage, d)
}

func (e *Engine) recordRequest(status string, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordSuggestRequest(status, d)
}

func (e *Engine) recordFallback(reason string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordFallbackTrigger(reason)
}

func (e *Engine) recordLLMFailure(kind string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordLLMFailure(kind)
}

func (e *Engine) recordLLMTokens(stats *llm.LLMCallStats) {
	if e.metrics == nil || stats == nil {
		return
	}
	e.metrics.RecordLLMTokens(e.cfg.LLMModel, "prompt", stats.PromptTokens)
	e.metrics.RecordLLMTokens(e.cfg.LLMModel, "completion", stats.CompletionTokens)
}
