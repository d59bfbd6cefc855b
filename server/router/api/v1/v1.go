// Package v1 exposes the suggestion engine over a JSON HTTP API.
package v1

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/obsrag/ai"
	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/ai/core/llm"
	"github.com/hrygo/obsrag/ai/core/reranker"
	"github.com/hrygo/obsrag/ai/metrics"
	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/internal/profile"
	"github.com/hrygo/obsrag/plugin/ocr"
	"github.com/hrygo/obsrag/server/service/process"
	"github.com/hrygo/obsrag/store"
	"github.com/hrygo/obsrag/vault"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	// Engine answers suggestion queries. Always present.
	Engine *suggest.Engine
	// Processor runs the capture pipeline. Nil when no OCR provider could
	// be configured; the process endpoint then answers 503.
	Processor *process.Processor
	// Exporter serves /metrics.
	Exporter *metrics.PrometheusExporter
}

// NewAPIV1Service scans the vault, builds the tag registry and wires the
// suggestion engine. The embedding service is mandatory; the LLM fallback
// and document processing degrade to disabled when their configuration is
// incomplete.
func NewAPIV1Service(ctx context.Context, profile *profile.Profile, store *store.Store) (*APIV1Service, error) {
	corpus, err := vault.NewLoader(profile.VaultDir, profile.TemplatesDir).Load()
	if err != nil {
		return nil, err
	}
	style, err := vault.ParseStyle(profile.TagStyle)
	if err != nil {
		return nil, err
	}
	registry, err := vault.BuildRegistry(corpus, style, profile.TagsDir)
	if err != nil {
		return nil, err
	}
	slog.Info("vault_scanned",
		"dir", profile.VaultDir,
		"notes", len(corpus.Notes),
		"tags", registry.Len(),
		"style", style,
	)

	aiCfg := ai.NewConfigFromProfile(profile)
	if err := aiCfg.Validate(); err != nil {
		return nil, err
	}
	embedder, err := embedding.NewService(&aiCfg.Embedding)
	if err != nil {
		return nil, &suggest.ConfigurationError{Resource: "embedding service", Err: err}
	}
	rerankService := reranker.NewService(&aiCfg.Reranker)

	var llmService llm.Service
	var chat suggest.ChatCompleter
	if aiCfg.LLMEnabled {
		llmService, err = llm.NewService(&aiCfg.LLM)
		if err != nil {
			slog.Warn("failed to initialize LLM service",
				"provider", aiCfg.LLM.Provider,
				"error", err,
				"note", "tag fallback and OCR will be disabled",
			)
		} else {
			slog.Info("LLM service initialized", "provider", aiCfg.LLM.Provider, "model", aiCfg.LLM.Model)
			chat = llmService
			// Warmup is best-effort; failures only cost first-request latency.
			go func() {
				warmupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				llmService.Warmup(warmupCtx)
			}()
		}
	} else {
		slog.Info("LLM fallback disabled", "reason", "no API key configured")
	}

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	if stats, err := store.Stats(ctx); err == nil {
		exporter.SetIndexStats(stats.Documents, stats.Chunks)
	} else {
		slog.Warn("failed to read index stats", "error", err)
	}

	engine, err := suggest.NewEngine(suggest.Config{
		TopK:          profile.SuggestTopK,
		TopN:          profile.SuggestTopN,
		MinTags:       profile.MinTagsThreshold,
		MinConfidence: profile.MinConfidence,
		LLMModel:      aiCfg.LLM.Model,
	}, ai.NewRetriever(embedder, store, aiCfg.Embedding.Model), rerankService, registry, chat, exporter)
	if err != nil {
		return nil, err
	}

	service := &APIV1Service{
		Profile:  profile,
		Store:    store,
		Engine:   engine,
		Exporter: exporter,
	}

	var vision ocr.VisionCompleter
	if llmService != nil {
		vision = llmService
	}
	ocrProvider, err := ocr.NewProvider(ocr.Config{Provider: profile.OCRProvider, MaxEdge: profile.OCRMaxEdge}, vision)
	if err != nil {
		slog.Warn("document processing disabled", "error", err)
		return service, nil
	}
	inboxDir := filepath.Join(profile.VaultDir, profile.InboxDir)
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		slog.Warn("document processing disabled", "error", err)
		return service, nil
	}
	writer := vault.NewWriter(inboxDir, style)
	service.Processor = process.New(ocrProvider, engine, writer, profile.InboxDir)
	slog.Info("document processing enabled", "ocr_provider", ocrProvider.Name(), "inbox", inboxDir)

	return service, nil
}

// Register mounts all routes on the echo server.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(s.Exporter.GetHandler()))

	g := e.Group("/api/v1")
	g.GET("/tags", s.ListTags)
	g.POST("/suggest", s.Suggest)
	g.POST("/process", s.ProcessDocument)
}
