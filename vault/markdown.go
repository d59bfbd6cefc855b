package vault

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	// wikilinkPattern matches [[target]], [[target|alias]], [[target#heading]].
	wikilinkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

	// hashtagPattern matches an Obsidian hashtag body. Tags must start with
	// a letter so that #1 (an issue reference) or #123 are not picked up.
	hashtagPattern = regexp.MustCompile(`#([a-zA-Z][a-zA-Z0-9_-]*)`)
)

// scrubbedText returns the document text with code blocks and inline code
// removed, so wikilinks and hashtags inside code samples are not extracted.
// Text segments within a block are concatenated verbatim; goldmark splits
// "[[x]]" across several Text nodes and the pieces must stay adjacent for
// the regex to see the whole link. Block boundaries become newlines.
func scrubbedText(source []byte) string {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindCodeSpan, ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// ExtractWikilinks returns the link targets of all [[wikilinks]] in the
// markdown, in first-occurrence order without duplicates. Aliases after |
// and #heading or ^block suffixes are stripped; links inside code are
// ignored.
func ExtractWikilinks(source []byte) []string {
	scrubbed := scrubbedText(source)

	var links []string
	seen := make(map[string]bool)
	for _, m := range wikilinkPattern.FindAllStringSubmatch(scrubbed, -1) {
		target := normalizeWikilinkTarget(m[1])
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		links = append(links, target)
	}
	return links
}

// normalizeWikilinkTarget reduces the inner text of a wikilink to the note
// name it points at: "Note|alias" -> "Note", "Note#Section" -> "Note",
// "Note^block" -> "Note".
func normalizeWikilinkTarget(inner string) string {
	target := inner
	if i := strings.Index(target, "|"); i >= 0 {
		target = target[:i]
	}
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	if i := strings.Index(target, "^"); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}

// ExtractHashtags returns all #hashtags in the markdown outside code, in
// first-occurrence order without duplicates. The leading # is stripped.
// A tag only counts when the # starts a word; "C#" or "a#b" do not match.
func ExtractHashtags(source []byte) []string {
	scrubbed := scrubbedText(source)

	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagPattern.FindAllStringSubmatchIndex(scrubbed, -1) {
		start := m[0]
		if start > 0 {
			prev := scrubbed[start-1]
			if !isTagBoundary(prev) {
				continue
			}
		}
		tag := scrubbed[m[2]:m[3]]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func isTagBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '(', '[', ',', ';', ':':
		return true
	}
	return false
}
