package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/core/llm"
)

const (
	// defaultMaxEdge keeps uploads near the vision models' native tile
	// budget; larger pages cost tokens without improving the transcript.
	defaultMaxEdge = 1536

	transcribePrompt = `Transcribe this page to clean Markdown.
Preserve headings, lists, emphasis and formulas. Mark anything illegible as [illegible].
Output only the transcript, no commentary.`
)

// VisionCompleter is the slice of the LLM service the provider uses.
type VisionCompleter interface {
	ChatVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, *llm.LLMCallStats, error)
}

// OpenAIProvider transcribes scanned or photographed pages through a
// vision-capable chat model. Text files pass through without a model call.
type OpenAIProvider struct {
	vision  VisionCompleter
	maxEdge int
}

// NewOpenAIProvider creates a vision transcription provider. maxEdge values
// of zero or below select the default.
func NewOpenAIProvider(vision VisionCompleter, maxEdge int) *OpenAIProvider {
	if maxEdge <= 0 {
		maxEdge = defaultMaxEdge
	}
	return &OpenAIProvider{vision: vision, maxEdge: maxEdge}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, path string) (string, error) {
	if isTextFile(path) {
		return readTextFile(path)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
	case ".pdf":
		return "", errors.Wrapf(ErrUnsupported, "%s: pdf pages must be exported as images", filepath.Base(path))
	default:
		return "", errors.Wrapf(ErrUnsupported, "%s", filepath.Base(path))
	}

	payload, err := p.prepareImage(path)
	if err != nil {
		return "", err
	}

	reply, stats, err := p.vision.ChatVision(ctx, transcribePrompt, payload, "image/jpeg")
	if err != nil {
		return "", errors.Wrapf(err, "failed to transcribe %s", filepath.Base(path))
	}
	if stats != nil {
		slog.Debug("ocr_page_transcribed",
			"file", filepath.Base(path),
			"prompt_tokens", stats.PromptTokens,
			"completion_tokens", stats.CompletionTokens,
		)
	}
	return strings.TrimSpace(reply), nil
}

// prepareImage normalizes a page before upload: orientation fixed, longest
// edge bounded, grayscale, re-encoded as JPEG. Handwriting loses nothing to
// grayscale and the payload shrinks considerably.
func (p *OpenAIProvider) prepareImage(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %s", path)
	}
	if b := img.Bounds(); b.Dx() > p.maxEdge || b.Dy() > p.maxEdge {
		img = imaging.Fit(img, p.maxEdge, p.maxEdge, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Wrapf(err, "failed to encode image %s", path)
	}
	return buf.Bytes(), nil
}

var _ Provider = (*OpenAIProvider)(nil)
