package indexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	t.Run("empty content", func(t *testing.T) {
		assert.Nil(t, splitChunks("", 512, 50))
		assert.Nil(t, splitChunks("   \n\t  ", 512, 50))
	})

	t.Run("short content single chunk", func(t *testing.T) {
		got := splitChunks("a short note", 512, 50)
		assert.Equal(t, []string{"a short note"}, got)
	})

	t.Run("exact size single chunk", func(t *testing.T) {
		content := strings.Repeat("a", 512)
		got := splitChunks(content, 512, 50)
		assert.Equal(t, []string{content}, got)
	})

	t.Run("long content splits with overlap", func(t *testing.T) {
		content := strings.Repeat("word ", 300) // 1500 runes
		got := splitChunks(content, 512, 50)

		require.True(t, len(got) >= 3, "expected at least 3 chunks, got %d", len(got))
		for i, chunk := range got {
			assert.LessOrEqual(t, len([]rune(chunk)), 512, "chunk %d too long", i)
			assert.NotEmpty(t, strings.TrimSpace(chunk))
		}
		// Overlap means the tail of one chunk reappears at the head of the next.
		tail := got[0][len(got[0])-20:]
		assert.Contains(t, got[1], tail)
	})

	t.Run("breaks at word boundaries", func(t *testing.T) {
		content := strings.Repeat("alpha beta gamma ", 100)
		for _, chunk := range splitChunks(content, 512, 50) {
			for _, word := range strings.Fields(chunk) {
				assert.Contains(t, []string{"alpha", "beta", "gamma"}, word,
					"chunk split mid-word: %q", word)
			}
		}
	})

	t.Run("unbroken run falls back to hard cut", func(t *testing.T) {
		content := strings.Repeat("x", 1200)
		got := splitChunks(content, 512, 50)
		require.True(t, len(got) >= 2)
		assert.Equal(t, 512, len([]rune(got[0])))
	})

	t.Run("rune aware for CJK", func(t *testing.T) {
		content := strings.Repeat("知识管理系统", 200) // 1200 runes, 3600 bytes
		got := splitChunks(content, 512, 50)
		require.True(t, len(got) >= 2)
		for i, chunk := range got {
			assert.LessOrEqual(t, len([]rune(chunk)), 512, "chunk %d too long in runes", i)
		}
	})

	t.Run("degenerate overlap still terminates", func(t *testing.T) {
		got := splitChunks(strings.Repeat("ab ", 100), 10, 9)
		assert.NotEmpty(t, got)
	})
}
