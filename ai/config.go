// Package ai assembles the AI services (embedding, reranker, LLM) from the
// profile and provides the vector index retriever.
package ai

import (
	"errors"

	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/ai/core/llm"
	"github.com/hrygo/obsrag/ai/core/reranker"
	"github.com/hrygo/obsrag/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding embedding.Config
	Reranker  reranker.Config
	LLM       llm.Config
	// LLMEnabled gates the fallback layer; embedding is always required.
	LLMEnabled bool
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Embedding: embedding.Config{
			Provider:          p.EmbeddingProvider,
			Model:             p.EmbeddingModel,
			APIKey:            p.EmbeddingAPIKey,
			BaseURL:           p.EmbeddingBaseURL,
			Dimensions:        p.EmbeddingDimensions,
			RequestsPerMinute: p.EmbedRequestsPerMin,
		},
		Reranker: reranker.Config{
			Provider: p.RerankProvider,
			Model:    p.RerankModel,
			APIKey:   p.RerankAPIKey,
			BaseURL:  p.RerankBaseURL,
			Enabled:  p.IsRerankEnabled(),
		},
		LLMEnabled: p.IsLLMEnabled(),
	}

	if cfg.LLMEnabled {
		cfg.LLM = llm.Config{
			Provider:    p.LLMProvider,
			Model:       p.LLMModel,
			APIKey:      p.LLMAPIKey,
			BaseURL:     p.LLMBaseURL,
			MaxTokens:   2048,
			Temperature: 0.2,
			Timeout:     p.LLMTimeout,
		}
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.LLMEnabled {
		if c.LLM.Model == "" {
			return errors.New("LLM model is required")
		}
		if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
			return errors.New("LLM API key is required")
		}
	}
	return nil
}
