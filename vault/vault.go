// Package vault reads an Obsidian-style vault: markdown notes, their
// wikilink graph, and the tag registry derived from it.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Note is one loaded vault document.
type Note struct {
	Name      string   // filename stem, unique within the vault
	Path      string   // vault-relative path
	Content   string   // raw markdown
	Hash      string   // SHA-256 hex of Content
	Tags      []string // #hashtags found outside code
	Links     []string // outgoing [[wikilink]] targets, deduplicated in order
	Backlinks []string // names of notes linking here, filled by Load
}

// Corpus is the loaded vault with its link graph resolved.
type Corpus struct {
	Notes  []*Note
	byName map[string]*Note
}

// Get returns the note with the given name, or nil.
func (c *Corpus) Get(name string) *Note {
	return c.byName[name]
}

// Len returns the number of loaded notes.
func (c *Corpus) Len() int {
	return len(c.Notes)
}

// Loader scans a vault directory tree.
type Loader struct {
	root         string
	templatesDir string // vault-relative, skipped when set
}

// NewLoader creates a loader rooted at dir. templatesDir names a
// vault-relative folder to skip (template stubs would pollute the index).
func NewLoader(dir string, templatesDir string) *Loader {
	return &Loader{
		root:         dir,
		templatesDir: filepath.Clean(templatesDir),
	}
}

// Load walks the vault and returns all markdown notes with links, tags and
// backlinks resolved. Dot-directories (.obsidian, .trash) are skipped. When
// two files share a stem the first in walk order wins and later ones are
// ignored; Obsidian resolves bare wikilinks the same way.
func (l *Loader) Load() (*Corpus, error) {
	if _, err := os.Stat(l.root); err != nil {
		return nil, errors.Wrapf(err, "vault directory not accessible: %s", l.root)
	}

	corpus := &Corpus{byName: make(map[string]*Note)}

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != l.root {
				return filepath.SkipDir
			}
			rel, relErr := filepath.Rel(l.root, path)
			if relErr == nil && l.templatesDir != "" && l.templatesDir != "." && rel == l.templatesDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read note: %s", path)
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return errors.Wrapf(err, "failed to relativize note path: %s", path)
		}

		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if _, ok := corpus.byName[name]; ok {
			return nil
		}

		sum := sha256.Sum256(raw)
		note := &Note{
			Name:    name,
			Path:    filepath.ToSlash(rel),
			Content: string(raw),
			Hash:    hex.EncodeToString(sum[:]),
			Tags:    ExtractHashtags(raw),
			Links:   ExtractWikilinks(raw),
		}
		corpus.Notes = append(corpus.Notes, note)
		corpus.byName[name] = note
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk vault")
	}

	resolveBacklinks(corpus)
	return corpus, nil
}

// resolveBacklinks inverts the outgoing link graph. Targets without a note
// in the corpus are kept in Links but get no backlink entry.
func resolveBacklinks(corpus *Corpus) {
	for _, note := range corpus.Notes {
		for _, target := range note.Links {
			if target == note.Name {
				continue
			}
			if dst, ok := corpus.byName[target]; ok {
				dst.Backlinks = append(dst.Backlinks, note.Name)
			}
		}
	}
	for _, note := range corpus.Notes {
		sort.Strings(note.Backlinks)
	}
}
