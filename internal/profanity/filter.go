package profanity

import (
	"strings"
	"unicode"
)

// Filter masks banned words in clue text before it reaches the guesser.
// Matching is case-insensitive and token-based, so "Word" and "WORD!" are
// both caught but substrings inside longer words are left alone.
// Implements the match package's clue filter.
type Filter struct {
	banned map[string]struct{}
}

// NewFilter builds a filter from a word list. An empty list passes all text
// through untouched.
func NewFilter(words []string) *Filter {
	banned := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			banned[w] = struct{}{}
		}
	}
	return &Filter{banned: banned}
}

// Clean replaces every banned token with asterisks of the same length.
func (f *Filter) Clean(text string) string {
	if len(f.banned) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		token := text[start:end]
		if _, hit := f.banned[strings.ToLower(token)]; hit {
			b.WriteString(strings.Repeat("*", len([]rune(token))))
		} else {
			b.WriteString(token)
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(text))

	return b.String()
}
