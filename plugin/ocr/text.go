package ocr

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
)

// TextProvider passes already-textual documents through verbatim. It backs
// setups without a vision model and doubles as the test seam for the
// processing pipeline.
type TextProvider struct{}

func NewTextProvider() *TextProvider {
	return &TextProvider{}
}

func (*TextProvider) Name() string {
	return "text"
}

func (*TextProvider) Transcribe(_ context.Context, path string) (string, error) {
	if !isTextFile(path) {
		return "", errors.Wrapf(ErrUnsupported, "%s: text provider only reads .md and .txt", filepath.Base(path))
	}
	return readTextFile(path)
}

var _ Provider = (*TextProvider)(nil)
