// Package watcher polls an inbox folder and feeds new documents into the
// processing pipeline. Processed files are remembered in a JSON ledger so a
// restart does not reprocess the whole folder; failed files stay out of the
// ledger and are retried on the next cycle.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/plugin/ocr"
)

const defaultInterval = 30 * time.Second

var defaultExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".md", ".txt"}

// Processor handles one detected document. Returning an error wrapping
// ocr.ErrUnsupported ledgers the file as skipped; any other error leaves it
// unledgered for retry.
type Processor interface {
	Process(ctx context.Context, path string) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, path string) error

func (f ProcessorFunc) Process(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Config tunes the watch loop. Zero values fall back to defaults.
type Config struct {
	// Dir is the inbox folder to poll. Required.
	Dir string
	// Interval is the poll period, default 30s.
	Interval time.Duration
	// Extensions limits which files are picked up, default
	// .pdf/.png/.jpg/.jpeg/.md/.txt.
	Extensions []string
	// LedgerPath locates the processed-file ledger, default
	// <dir>/.obsrag/processed.json.
	LedgerPath string
}

// Watcher is the polling loop. Construct with New, drive with Run.
type Watcher struct {
	cfg    Config
	exts   map[string]struct{}
	ledger *Ledger
	proc   Processor
}

// New creates a watcher over cfg.Dir. The directory itself may appear later;
// an inaccessible folder only logs a warning per cycle.
func New(cfg Config, proc Processor) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, &suggest.ConfigurationError{Resource: "watch folder"}
	}
	if proc == nil {
		return nil, &suggest.ConfigurationError{Resource: "document processor"}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = defaultExtensions
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.Dir, ".obsrag", "processed.json")
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	ledger, err := LoadLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	return &Watcher{cfg: cfg, exts: exts, ledger: ledger, proc: proc}, nil
}

// Run polls until ctx is cancelled. The first sweep happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher_started",
		"dir", w.cfg.Dir,
		"interval", w.cfg.Interval.String(),
		"ledgered", w.ledger.Len(),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher_stopped")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one poll cycle: list the folder, process what is new or
// changed, persist the ledger after every outcome worth remembering.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		slog.Warn("watch_folder_not_accessible", "dir", w.cfg.Dir, "error", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := w.exts[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}

		path := filepath.Join(w.cfg.Dir, name)
		info, err := entry.Info()
		if err != nil {
			slog.Warn("document_stat_failed", "file", name, "error", err)
			continue
		}

		hash, fresh, err := w.classify(name, path, info.ModTime())
		if err != nil {
			slog.Warn("document_read_failed", "file", name, "error", err)
			continue
		}
		if !fresh {
			continue
		}

		w.process(ctx, name, path, hash, info.ModTime())
	}
}

// classify decides whether the file needs processing. Unledgered files
// always do. Ledgered files are re-hashed only when their mtime moved; a
// touch without a content change just refreshes the ledger.
func (w *Watcher) classify(name, path string, modTime time.Time) (string, bool, error) {
	prev, seen := w.ledger.Get(name)
	if !seen {
		hash, err := hashFile(path)
		return hash, true, err
	}
	if prev.ModTime == modTime.UnixNano() {
		return "", false, nil
	}

	hash, err := hashFile(path)
	if err != nil {
		return "", false, err
	}
	if hash == prev.Hash {
		w.ledger.Touch(name, modTime)
		if err := w.ledger.Save(); err != nil {
			slog.Warn("ledger_save_failed", "error", err)
		}
		return "", false, nil
	}
	return hash, true, nil
}

func (w *Watcher) process(ctx context.Context, name, path, hash string, modTime time.Time) {
	slog.Info("document_detected", "file", name)

	err := w.proc.Process(ctx, path)
	switch {
	case err == nil:
		w.ledger.Mark(name, hash, modTime, false)
		slog.Info("document_processed", "file", name)
	case errors.Is(err, ocr.ErrUnsupported):
		w.ledger.Mark(name, hash, modTime, true)
		slog.Warn("document_skipped", "file", name, "error", err)
	case ctx.Err() != nil:
		return
	default:
		slog.Error("document_processing_failed", "file", name, "error", err)
		return
	}

	if err := w.ledger.Save(); err != nil {
		slog.Warn("ledger_save_failed", "error", err)
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
