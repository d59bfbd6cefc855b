// Package ocr turns source documents into Markdown transcripts.
//
// The suggestion pipeline only ever sees text; providers here are the
// boundary that produces it. The openai provider transcribes scanned or
// photographed pages through a vision model, the text provider passes
// already-textual files through verbatim.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/suggest"
)

// ErrUnsupported reports a file type the provider cannot transcribe. It is
// permanent for a given file; callers should skip the file rather than retry.
var ErrUnsupported = errors.New("unsupported document type")

// Provider produces a Markdown transcript from a source document.
type Provider interface {
	// Transcribe returns the text content of the document at path.
	Transcribe(ctx context.Context, path string) (string, error)
	// Name identifies the provider in logs and processing summaries.
	Name() string
}

// Config selects and tunes the transcription provider.
type Config struct {
	// Provider is "openai" (default) or "text".
	Provider string
	// MaxEdge bounds the longest image edge in pixels before upload.
	MaxEdge int
}

// NewProvider builds the configured provider. vision is required by the
// openai provider and ignored by the text provider.
func NewProvider(cfg Config, vision VisionCompleter) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		if vision == nil {
			return nil, &suggest.ConfigurationError{Resource: "vision model service"}
		}
		return NewOpenAIProvider(vision, cfg.MaxEdge), nil
	case "text":
		return NewTextProvider(), nil
	default:
		return nil, &suggest.ConfigurationError{Resource: fmt.Sprintf("ocr provider %q", cfg.Provider)}
	}
}

func isTextFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read document %s", path)
	}
	return string(data), nil
}
