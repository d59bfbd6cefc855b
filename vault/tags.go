package vault

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Style selects how the vault expresses tags.
type Style string

const (
	// StyleWikilink treats notes under a dedicated tags folder as the tag
	// vocabulary; a note is tagged by linking to one of them.
	StyleWikilink Style = "wikilink"
	// StyleHashtag treats inline #hashtags as the tag vocabulary.
	StyleHashtag Style = "hashtag"
)

// ParseStyle validates a style string from config.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleWikilink:
		return StyleWikilink, nil
	case StyleHashtag:
		return StyleHashtag, nil
	}
	return "", errors.Errorf("unknown tag style %q, want wikilink or hashtag", s)
}

// Registry is the known tag vocabulary plus, per tag, the notes that use it.
// It is built once at startup and read-only afterwards.
type Registry struct {
	style Style
	names []string            // sorted
	usage map[string][]string // tag -> sorted note names using it
}

// BuildRegistry derives the tag registry from a loaded corpus. For the
// wikilink style tagsDir names the vault-relative folder whose direct .md
// children are the tags; for the hashtag style tagsDir is ignored and the
// vocabulary is every hashtag seen in the corpus.
func BuildRegistry(corpus *Corpus, style Style, tagsDir string) (*Registry, error) {
	switch style {
	case StyleWikilink:
		return buildWikilinkRegistry(corpus, tagsDir)
	case StyleHashtag:
		return buildHashtagRegistry(corpus), nil
	}
	return nil, errors.Errorf("unknown tag style %q", style)
}

func buildWikilinkRegistry(corpus *Corpus, tagsDir string) (*Registry, error) {
	if tagsDir == "" {
		return nil, errors.New("wikilink tag style requires a tags directory")
	}
	dir := filepath.ToSlash(filepath.Clean(tagsDir))

	set := make(map[string]bool)
	for _, note := range corpus.Notes {
		if filepath.ToSlash(filepath.Dir(note.Path)) == dir {
			set[note.Name] = true
		}
	}
	if len(set) == 0 {
		return nil, errors.Errorf("no tag notes found under %s", tagsDir)
	}

	usage := make(map[string][]string)
	for _, note := range corpus.Notes {
		if set[note.Name] {
			continue
		}
		for _, target := range note.Links {
			if set[target] {
				usage[target] = append(usage[target], note.Name)
			}
		}
	}
	return newRegistry(StyleWikilink, set, usage), nil
}

func buildHashtagRegistry(corpus *Corpus) *Registry {
	set := make(map[string]bool)
	usage := make(map[string][]string)
	for _, note := range corpus.Notes {
		for _, tag := range note.Tags {
			set[tag] = true
			usage[tag] = append(usage[tag], note.Name)
		}
	}
	return newRegistry(StyleHashtag, set, usage)
}

func newRegistry(style Style, set map[string]bool, usage map[string][]string) *Registry {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for tag, docs := range usage {
		sort.Strings(docs)
		usage[tag] = dedupeSorted(docs)
	}
	return &Registry{style: style, names: names, usage: usage}
}

// Style returns the registry's tag style.
func (r *Registry) Style() Style {
	return r.style
}

// Contains reports whether name is a known tag.
func (r *Registry) Contains(name string) bool {
	i := sort.SearchStrings(r.names, name)
	return i < len(r.names) && r.names[i] == name
}

// ContextFor returns the sorted note names that use the tag. Empty when the
// tag is unknown or unused.
func (r *Registry) ContextFor(name string) []string {
	return r.usage[name]
}

// Names returns the full tag vocabulary, sorted.
func (r *Registry) Names() []string {
	return r.names
}

// Len returns the vocabulary size.
func (r *Registry) Len() int {
	return len(r.names)
}

func dedupeSorted(in []string) []string {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// LoadTagNames lists tag note stems directly under dir without loading the
// whole vault. Used by the CLI to print the vocabulary quickly.
func LoadTagNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tags directory: %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}
