package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server and CLI commands.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, siliconflow, zai, ollama) use the same config
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, zai, ollama
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o-mini, deepseek-chat, glm-4.7, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Reranker configuration. The reranker is optional: when no API key is
	// configured, candidates pass through on their retrieval scores.
	RerankProvider string
	RerankModel    string
	RerankAPIKey   string
	RerankBaseURL  string

	// Vault configuration
	VaultDir     string // Root of the markdown knowledge base
	InboxDir     string // Subfolder (relative to vault) where processed notes are written
	TagsDir      string // Subfolder (relative to vault) holding tag pages, wikilink style only
	TagStyle     string // "wikilink" or "hashtag"
	TemplatesDir string // Subfolder skipped while scanning (template notes)

	// Suggestion engine knobs
	SuggestTopK      int     // Candidates fetched from the vector index
	SuggestTopN      int     // Candidates kept after reranking
	MinTagsThreshold int     // Fewer Layer-1 tags than this triggers the LLM fallback
	MinConfidence    float32 // Lower max retrieval tag score than this triggers the LLM fallback

	// Index build knobs
	ChunkSize           int // Indexing chunk size in runes
	ChunkOverlap        int // Indexing chunk overlap in runes
	EmbedBatchSize      int // Texts per embedding request during index build
	EmbedRequestsPerMin int // Embedding API rate limit, 0 disables limiting
	EmbedConcurrency    int // Parallel embedding requests during index build

	// Incoming document processing
	WatchPollSeconds int    // Watcher poll interval
	WatchDir         string // Directory polled for incoming scans
	OCRProvider      string // "openai" or "text"
	OCRMaxEdge       int    // Longest image edge after preprocessing, pixels
	OCRModel         string // Vision-capable model for the openai provider

	// Server configurations
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Provider default configurations for LLM.
// Used when OBSRAG_LLM_BASE_URL or OBSRAG_LLM_MODEL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM backend is configured. Without it the
// suggestion engine runs Layer 1 only and never invokes the fallback.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsRerankEnabled returns true if a reranker API key is configured.
func (p *Profile) IsRerankEnabled() bool {
	return p.RerankAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float32 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("OBSRAG_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("OBSRAG_LLM_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.LLMBaseURL = getEnvOrDefault("OBSRAG_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("OBSRAG_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("OBSRAG_LLM_TIMEOUT_SECONDS", 120)

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("OBSRAG_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("OBSRAG_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("OBSRAG_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("OBSRAG_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("OBSRAG_EMBEDDING_DIMENSIONS", 1536)

	// Reranker configuration
	p.RerankProvider = getEnvOrDefault("OBSRAG_RERANK_PROVIDER", "siliconflow")
	p.RerankModel = getEnvOrDefault("OBSRAG_RERANK_MODEL", "BAAI/bge-reranker-v2-m3")
	p.RerankAPIKey = getEnvOrDefault("OBSRAG_RERANK_API_KEY", "")
	p.RerankBaseURL = getEnvOrDefault("OBSRAG_RERANK_BASE_URL", "https://api.siliconflow.cn/v1")

	// Vault configuration
	if p.VaultDir == "" {
		p.VaultDir = getEnvOrDefault("OBSRAG_VAULT", "")
	}
	p.InboxDir = getEnvOrDefault("OBSRAG_INBOX_DIR", "inbox")
	p.TagsDir = getEnvOrDefault("OBSRAG_TAGS_DIR", "tags")
	p.TagStyle = getEnvOrDefault("OBSRAG_TAG_STYLE", "wikilink")
	p.TemplatesDir = getEnvOrDefault("OBSRAG_TEMPLATES_DIR", "templates")

	// Suggestion engine knobs
	p.SuggestTopK = getEnvOrDefaultInt("OBSRAG_SUGGEST_TOP_K", 10)
	p.SuggestTopN = getEnvOrDefaultInt("OBSRAG_SUGGEST_TOP_N", 5)
	p.MinTagsThreshold = getEnvOrDefaultInt("OBSRAG_MIN_TAGS_THRESHOLD", 3)
	p.MinConfidence = getEnvOrDefaultFloat("OBSRAG_MIN_CONFIDENCE_THRESHOLD", 0.4)

	// Index build knobs
	p.ChunkSize = getEnvOrDefaultInt("OBSRAG_CHUNK_SIZE", 512)
	p.ChunkOverlap = getEnvOrDefaultInt("OBSRAG_CHUNK_OVERLAP", 50)
	p.EmbedBatchSize = getEnvOrDefaultInt("OBSRAG_EMBED_BATCH_SIZE", 32)
	p.EmbedRequestsPerMin = getEnvOrDefaultInt("OBSRAG_EMBED_REQUESTS_PER_MIN", 300)
	p.EmbedConcurrency = getEnvOrDefaultInt("OBSRAG_EMBED_CONCURRENCY", 4)

	// Incoming document processing
	p.WatchPollSeconds = getEnvOrDefaultInt("OBSRAG_WATCH_POLL_SECONDS", 30)
	if p.WatchDir == "" {
		p.WatchDir = getEnvOrDefault("OBSRAG_WATCH_DIR", "")
	}
	p.OCRProvider = getEnvOrDefault("OBSRAG_OCR_PROVIDER", "openai")
	p.OCRMaxEdge = getEnvOrDefaultInt("OBSRAG_OCR_MAX_EDGE", 2048)
	p.OCRModel = getEnvOrDefault("OBSRAG_OCR_MODEL", "gpt-4o-mini")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "obsrag")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/obsrag"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q (sqlite, postgres)", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("obsrag_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN (--dsn or OBSRAG_DSN)")
	}

	if p.VaultDir == "" {
		return errors.New("vault directory is required (--vault or OBSRAG_VAULT)")
	}
	vaultDir, err := filepath.Abs(p.VaultDir)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve vault folder %s", p.VaultDir)
	}
	if _, err := os.Stat(vaultDir); err != nil {
		return errors.Wrapf(err, "unable to access vault folder %s", vaultDir)
	}
	p.VaultDir = vaultDir

	if p.TagStyle != "wikilink" && p.TagStyle != "hashtag" {
		return errors.Errorf("unsupported tag style %q (wikilink, hashtag)", p.TagStyle)
	}

	return nil
}
