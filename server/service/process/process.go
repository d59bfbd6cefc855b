// Package process runs the capture pipeline end to end: transcribe a source
// document, ask the engine for tags and links, write the note into the vault.
// The API process endpoint, the watch loop and the process CLI command all
// share this one implementation.
package process

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/plugin/ocr"
	"github.com/hrygo/obsrag/vault"
)

// Result summarizes one processed document.
type Result struct {
	// Title of the written note, derived from the source filename.
	Title string
	// Transcript is the full text the OCR provider produced.
	Transcript string
	// NotePath is the vault-relative path of the written note.
	NotePath string
	// Suggestion is the engine output the note was built from.
	Suggestion *suggest.Result
	// Tags were rendered into the note.
	Tags []string
	// References were rendered into the note's References section.
	References []string
}

// Processor wires the pipeline stages together.
type Processor struct {
	ocr      ocr.Provider
	engine   *suggest.Engine
	writer   *vault.Writer
	inboxRel string
}

// New creates a processor. inboxRel is the vault-relative folder the writer
// targets; it only prefixes the reported note path.
func New(provider ocr.Provider, engine *suggest.Engine, writer *vault.Writer, inboxRel string) *Processor {
	return &Processor{ocr: provider, engine: engine, writer: writer, inboxRel: inboxRel}
}

// Process runs the pipeline on one document. OCR errors pass through
// unwrapped so callers can distinguish unsupported files from transient
// failures.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	base := filepath.Base(path)

	transcript, err := p.ocr.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.Errorf("empty transcript from %s", base)
	}

	suggestion, err := p.engine.Suggest(ctx, suggest.Request{Text: transcript, Filename: base})
	if err != nil {
		return nil, err
	}

	tags := finalTags(suggestion)
	references := retrievalLinks(suggestion.Links)
	title := vault.TitleFromFilename(base)

	rel, err := p.writer.Write(&vault.NoteDraft{
		Title:      title,
		SourceName: base,
		Body:       transcript,
		Tags:       tags,
		References: references,
	})
	if err != nil {
		return nil, err
	}

	notePath := rel
	if p.inboxRel != "" {
		notePath = filepath.ToSlash(filepath.Join(p.inboxRel, rel))
	}

	slog.InfoContext(ctx, "document_processed",
		"file", base,
		"note", notePath,
		"ocr_provider", p.ocr.Name(),
		"transcript_chars", len(transcript),
		"tags", len(tags),
		"references", len(references),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Title:      title,
		Transcript: transcript,
		NotePath:   notePath,
		Suggestion: suggestion,
		Tags:       tags,
		References: references,
	}, nil
}

// finalTags picks the tags written into the note. A model decision replaces
// the retrieval tags outright; without one the Layer-1 names stand.
func finalTags(res *suggest.Result) []string {
	if res.Decision != nil {
		tags := make([]string, 0, len(res.Decision.ExistingTags)+len(res.Decision.NewTags))
		tags = append(tags, res.Decision.ExistingTags...)
		tags = append(tags, res.Decision.NewTags...)
		return tags
	}
	tags := make([]string, len(res.Tags))
	for i, c := range res.Tags {
		tags[i] = c.Name
	}
	return tags
}

// retrievalLinks keeps only retrieval-scored links. Graph-expanded neighbors
// stay suggestions; the written note references what the index actually
// matched.
func retrievalLinks(links []suggest.Candidate) []string {
	out := make([]string, 0, len(links))
	for _, c := range links {
		if c.Source == suggest.SourceRetrieval {
			out = append(out, c.Name)
		}
	}
	return out
}
