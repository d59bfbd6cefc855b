package watcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Entry records one processed inbox file. ModTime and Hash let the watcher
// tell a touched file from a changed one without re-reading every cycle.
type Entry struct {
	ModTime     int64     `json:"mtime"`
	Hash        string    `json:"hash"`
	Skipped     bool      `json:"skipped,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Ledger is the persistent set of processed files, keyed by file name. It is
// owned by the watch loop and not safe for concurrent use.
type Ledger struct {
	path    string
	entries map[string]Entry
}

// LoadLedger reads the ledger at path. A missing file yields an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ledger %s", path)
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ledger %s", path)
	}
	return l, nil
}

// Get returns the entry for name, if any.
func (l *Ledger) Get(name string) (Entry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Mark records name as processed.
func (l *Ledger) Mark(name, hash string, modTime time.Time, skipped bool) {
	l.entries[name] = Entry{
		ModTime:     modTime.UnixNano(),
		Hash:        hash,
		Skipped:     skipped,
		ProcessedAt: time.Now().UTC(),
	}
}

// Touch refreshes the stored mtime without changing processed state, so an
// unchanged file that was merely touched is not re-hashed every cycle.
func (l *Ledger) Touch(name string, modTime time.Time) {
	e, ok := l.entries[name]
	if !ok {
		return
	}
	e.ModTime = modTime.UnixNano()
	l.entries[name] = e
}

// Len returns the number of ledgered files.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Save writes the ledger to disk, creating parent directories as needed.
func (l *Ledger) Save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode ledger")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create ledger directory for %s", l.path)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write ledger %s", l.path)
	}
	return nil
}
