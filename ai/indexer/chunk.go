package indexer

import (
	"strings"
	"unicode"
)

const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 50

	// boundaryWindow is how far back from a cut point we look for
	// whitespace before giving up and splitting mid-word.
	boundaryWindow = 64
)

// splitChunks cuts content into overlapping windows of roughly size runes.
// Cuts prefer word boundaries; consecutive chunks share overlap runes so
// sentences spanning a cut stay retrievable. Whitespace-only chunks are
// dropped.
func splitChunks(content string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = wordBoundary(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// Degenerate size/overlap combination, advance without overlap.
			next = end
		} else {
			// Align the overlap start to a word start so no chunk opens
			// mid-word. An unbroken run collapses the overlap to zero.
			for next < end && !unicode.IsSpace(runes[next-1]) {
				next++
			}
		}
		start = next
	}
	return chunks
}

// wordBoundary walks back from end to the nearest whitespace so words stay
// whole. Falls back to the original cut when no whitespace is close.
func wordBoundary(runes []rune, start, end int) int {
	limit := end - boundaryWindow
	if limit <= start {
		limit = start + 1
	}
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
