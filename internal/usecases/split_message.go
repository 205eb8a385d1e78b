package usecases

import "strings"

// MessageLimit is the Telegram ceiling for one message, in characters
const MessageLimit = 4096

var splitSeparators = []string{"\n\n", "\n"}

// SplitMessage cuts content into chunks of at most limit runes. Paragraphs are
// kept whole when possible, then lines; a single oversized line is cut hard.
// Separators stay in the chunks, so joining them with "" restores the content.
func SplitMessage(content string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if content == "" {
		return nil
	}
	return splitRecursive(content, limit, splitSeparators)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func splitRecursive(content string, limit int, separators []string) []string {
	if runeLen(content) <= limit {
		return []string{content}
	}
	if len(separators) == 0 {
		return hardCut(content, limit)
	}

	var chunks []string
	current := ""
	for _, part := range strings.SplitAfter(content, separators[0]) {
		if part == "" {
			continue
		}
		if runeLen(current+part) <= limit {
			current += part
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
		if runeLen(part) <= limit {
			current = part
			continue
		}
		pieces := splitRecursive(part, limit, separators[1:])
		// the tail of a cut may still take following parts
		last := len(pieces) - 1
		chunks = append(chunks, pieces[:last]...)
		current = pieces[last]
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func hardCut(content string, limit int) []string {
	runes := []rune(content)
	chunks := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
