package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// CountTokens estimates the token count of text. Whitespace-free scripts
// (Japanese, Chinese) are counted by characters, everything else by words.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	words := strings.Fields(text)
	byWords := len(words) * 4 / 3
	byRunes := utf8.RuneCountInString(text) / 4
	return max(byWords, byRunes, 1)
}

// CountMessages estimates the prompt size of a chat request.
func CountMessages(contents ...string) int {
	total := 0
	for _, c := range contents {
		total += CountTokens(c) + 4 // role and separators
	}
	return total
}
