package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// NoteDraft is a note to be materialized into the vault, typically the
// output of processing a captured image or transcript.
type NoteDraft struct {
	Title      string    // defaults to a title-cased stem of SourceName
	SourceName string    // original filename the note was derived from
	Body       string    // markdown body
	Tags       []string  // tag names, rendered per registry style
	References []string  // note names rendered as a wikilink list
	CreatedAt  time.Time // zero value means now
}

// Writer persists drafts as markdown notes.
type Writer struct {
	root  string
	style Style
}

// NewWriter writes notes under dir, rendering tags in the given style.
func NewWriter(dir string, style Style) *Writer {
	return &Writer{root: dir, style: style}
}

// Write renders the draft and writes it into the vault, returning the
// vault-relative path. An existing note with the same name gets a " (n)"
// suffix rather than being overwritten.
func (w *Writer) Write(draft *NoteDraft) (string, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = TitleFromFilename(draft.SourceName)
	}
	if title == "" {
		return "", errors.New("note draft has no title and no source name")
	}

	name, err := w.availableName(sanitizeFilename(title))
	if err != nil {
		return "", err
	}

	content := w.render(title, draft)
	rel := name + ".md"
	if err := os.WriteFile(filepath.Join(w.root, rel), []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write note: %s", rel)
	}
	return rel, nil
}

func (w *Writer) render(title string, draft *NoteDraft) string {
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Created: %s\n", createdAt.Format("2006-01-02"))
	if draft.SourceName != "" {
		fmt.Fprintf(&sb, "Source: %s\n", draft.SourceName)
	}

	if len(draft.Tags) > 0 {
		sb.WriteString("\nTags: ")
		for i, tag := range draft.Tags {
			if i > 0 {
				sb.WriteString(" ")
			}
			if w.style == StyleWikilink {
				fmt.Fprintf(&sb, "[[%s]]", tag)
			} else {
				fmt.Fprintf(&sb, "#%s", tag)
			}
		}
		sb.WriteString("\n")
	}

	body := strings.TrimSpace(draft.Body)
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
		sb.WriteString("\n")
	}

	if len(draft.References) > 0 {
		sb.WriteString("\n## References\n\n")
		for _, ref := range draft.References {
			fmt.Fprintf(&sb, "- [[%s]]\n", ref)
		}
	}
	return sb.String()
}

// availableName appends " (2)", " (3)", ... until the name is free.
func (w *Writer) availableName(base string) (string, error) {
	name := base
	for n := 2; ; n++ {
		_, err := os.Stat(filepath.Join(w.root, name+".md"))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to probe note name: %s", name)
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
}

// TitleFromFilename turns "linear-algebra_notes.jpg" into
// "Linear Algebra Notes". Separators become spaces and each word is
// capitalized; existing inner capitals are preserved.
func TitleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(stem)

	words := strings.Fields(stem)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var invalidFilenameChars = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "", "?", "",
	"\"", "", "<", "", ">", "", "|", "-", "#", "", "^", "", "[", "", "]", "",
)

// sanitizeFilename strips characters Obsidian or the OS reject in note
// names. Wikilink metacharacters are removed so the note stays linkable.
func sanitizeFilename(name string) string {
	return strings.TrimSpace(invalidFilenameChars.Replace(name))
}
