package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	t.Run("Should keep short content whole", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, SplitMessage("hello", 10))
	})

	t.Run("Should return nothing for empty content", func(t *testing.T) {
		assert.Empty(t, SplitMessage("", 10))
	})

	t.Run("Should split on paragraphs first", func(t *testing.T) {
		content := "aaaa\n\nbbbb\n\ncccc"
		chunks := SplitMessage(content, 10)
		assert.Equal(t, []string{"aaaa\n\n", "bbbb\n\ncccc"}, chunks)
		assert.Equal(t, content, strings.Join(chunks, ""))
	})

	t.Run("Should fall back to lines", func(t *testing.T) {
		chunks := SplitMessage("aaaa\nbbbb\ncccc", 9)
		assert.Equal(t, []string{"aaaa\n", "bbbb\ncccc"}, chunks)
	})

	t.Run("Should cut single long line", func(t *testing.T) {
		chunks := SplitMessage("abcdefghij", 4)
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
	})

	t.Run("Should count runes not bytes", func(t *testing.T) {
		content := strings.Repeat("ї", 6)
		chunks := SplitMessage(content, 4)
		assert.Equal(t, []string{"їїїї", "її"}, chunks)
	})

	t.Run("Should rebuild multibyte text without break points", func(t *testing.T) {
		content := strings.Repeat("Привіт💪", 50)
		for _, limit := range []int{1, 7, 33, 4096} {
			chunks := SplitMessage(content, limit)
			assert.Equal(t, content, strings.Join(chunks, ""))
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), limit)
			}
		}
	})

	t.Run("Should rebuild content when a separator lands on the cut", func(t *testing.T) {
		content := strings.Repeat("a", 10) + "\n\n" + "tail"
		chunks := SplitMessage(content, 10)
		assert.Equal(t, content, strings.Join(chunks, ""))
		assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	})

	t.Run("Should never exceed the limit", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 300; i++ {
			b.WriteString(strings.Repeat("слово ", i%40))
			if i%3 == 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		for _, limit := range []int{16, 100, 4096} {
			chunks := SplitMessage(b.String(), limit)
			assert.Equal(t, b.String(), strings.Join(chunks, ""))
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), limit)
			}
		}
	})

	t.Run("Should default to telegram limit", func(t *testing.T) {
		chunks := SplitMessage(strings.Repeat("x", MessageLimit+1), 0)
		assert.Len(t, chunks, 2)
	})
}
