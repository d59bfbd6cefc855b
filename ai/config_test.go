package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/internal/profile"
)

func embeddingConfig(provider, model, key string) embedding.Config {
	return embedding.Config{Provider: provider, Model: model, APIKey: key}
}

func TestNewConfigFromProfile(t *testing.T) {
	p := &profile.Profile{
		EmbeddingProvider:   "siliconflow",
		EmbeddingModel:      "BAAI/bge-m3",
		EmbeddingAPIKey:     "embed-key",
		EmbeddingBaseURL:    "https://api.siliconflow.cn/v1",
		EmbeddingDimensions: 1024,
		EmbedRequestsPerMin: 120,
		RerankProvider:      "siliconflow",
		RerankModel:         "BAAI/bge-reranker-v2-m3",
		RerankAPIKey:        "rerank-key",
		RerankBaseURL:       "https://api.siliconflow.cn/v1",
	}

	cfg := NewConfigFromProfile(p)

	assert.Equal(t, "siliconflow", cfg.Embedding.Provider)
	assert.Equal(t, "BAAI/bge-m3", cfg.Embedding.Model)
	assert.Equal(t, "embed-key", cfg.Embedding.APIKey)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 120, cfg.Embedding.RequestsPerMinute)

	assert.True(t, cfg.Reranker.Enabled)
	assert.Equal(t, "BAAI/bge-reranker-v2-m3", cfg.Reranker.Model)

	assert.False(t, cfg.LLMEnabled, "no LLM key means Layer 1 only")
	assert.Empty(t, cfg.LLM.Model)
}

func TestNewConfigFromProfile_LLMEnabled(t *testing.T) {
	p := &profile.Profile{
		EmbeddingModel: "text-embedding-3-small",
		LLMProvider:    "deepseek",
		LLMAPIKey:      "llm-key",
		LLMBaseURL:     "https://api.deepseek.com",
		LLMModel:       "deepseek-chat",
		LLMTimeout:     60,
	}

	cfg := NewConfigFromProfile(p)

	require.True(t, cfg.LLMEnabled)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 60, cfg.LLM.Timeout)
}

func TestNewConfigFromProfile_OllamaNeedsNoKey(t *testing.T) {
	p := &profile.Profile{
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
		LLMProvider:       "ollama",
		LLMModel:          "llama3.1",
	}

	cfg := NewConfigFromProfile(p)
	require.True(t, cfg.LLMEnabled, "ollama runs without an API key")
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "MissingEmbeddingModel",
			cfg:     Config{},
			wantErr: "embedding model is required",
		},
		{
			name: "MissingEmbeddingKey",
			cfg: Config{
				Embedding: embeddingConfig("openai", "text-embedding-3-small", ""),
			},
			wantErr: "embedding API key is required",
		},
		{
			name: "LLMEnabledWithoutModel",
			cfg: Config{
				Embedding:  embeddingConfig("openai", "text-embedding-3-small", "key"),
				LLMEnabled: true,
			},
			wantErr: "LLM model is required",
		},
		{
			name: "Valid",
			cfg: Config{
				Embedding: embeddingConfig("openai", "text-embedding-3-small", "key"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
