package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLength drops tokens of two characters or fewer.
const DefaultMinTokenLength = 2

// Tokenize composes text to NFC, lower-cases it, splits it on every non-letter (whitespace,
// punctuation, apostrophes, digits) and drops tokens whose length in runes
// is at most minLen. Elided articles such as the "l" of "l'homme" are
// therefore dropped.
func Tokenize(text string, minLen int) []string {
	words := splitWords(text)
	out := words[:0]
	for _, w := range words {
		if !isShort(w, minLen) {
			out = append(out, w)
		}
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(norm.NFC.String(strings.ToLower(text)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func isShort(word string, minLen int) bool {
	return utf8.RuneCountInString(word) <= minLen
}
