package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/obsrag/ai/suggest"
)

func TestNewProvider(t *testing.T) {
	vision := &stubVision{reply: "ok"}

	tests := []struct {
		name     string
		cfg      Config
		vision   VisionCompleter
		wantName string
		wantErr  bool
	}{
		{
			name:     "DefaultIsOpenAI",
			cfg:      Config{},
			vision:   vision,
			wantName: "openai",
		},
		{
			name:     "ExplicitOpenAI",
			cfg:      Config{Provider: "openai"},
			vision:   vision,
			wantName: "openai",
		},
		{
			name:     "TextProvider",
			cfg:      Config{Provider: "text"},
			wantName: "text",
		},
		{
			name:     "ProviderNameNormalized",
			cfg:      Config{Provider: "  TEXT "},
			wantName: "text",
		},
		{
			name:    "OpenAIRequiresVisionService",
			cfg:     Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "UnknownProvider",
			cfg:     Config{Provider: "tesseract"},
			vision:  vision,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg, tt.vision)
			if tt.wantErr {
				require.Error(t, err)
				var confErr *suggest.ConfigurationError
				require.ErrorAs(t, err, &confErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, provider.Name())
		})
	}
}

func TestTextProvider_Transcribe(t *testing.T) {
	dir := t.TempDir()
	content := "# Lecture 7\n\nSpectral theorems, 谱定理。\n"
	mdPath := filepath.Join(dir, "lecture.md")
	require.NoError(t, os.WriteFile(mdPath, []byte(content), 0o644))

	provider := NewTextProvider()

	t.Run("MarkdownVerbatim", func(t *testing.T) {
		got, err := provider.Transcribe(context.Background(), mdPath)
		require.NoError(t, err)
		assert.Equal(t, content, got, "text files are not rewritten")
	})

	t.Run("TxtVerbatim", func(t *testing.T) {
		txtPath := filepath.Join(dir, "scratch.txt")
		require.NoError(t, os.WriteFile(txtPath, []byte("plain"), 0o644))
		got, err := provider.Transcribe(context.Background(), txtPath)
		require.NoError(t, err)
		assert.Equal(t, "plain", got)
	})

	t.Run("ImageUnsupported", func(t *testing.T) {
		_, err := provider.Transcribe(context.Background(), filepath.Join(dir, "scan.png"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := provider.Transcribe(context.Background(), filepath.Join(dir, "gone.md"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnsupported), "read failures are transient, not unsupported")
	})
}
