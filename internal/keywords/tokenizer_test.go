package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		minLen int
		want   []string
	}{
		{"elision drops the article", "L'homme mangeait", 2, []string{"homme", "mangeait"}},
		{"typographic apostrophe", "à l’école d’été", 2, []string{"école", "été"}},
		{"digits and punctuation split", "Paris2024, (lyon)!marseille", 2, []string{"paris", "lyon", "marseille"}},
		{"rune length not byte length", "été où île", 2, []string{"été", "île"}},
		{"decomposed accents are composed", "e\u0301te\u0301 cafe\u0301", 2, []string{"été", "café"}},
		{"custom threshold", "chat chien souris", 4, []string{"chien", "souris"}},
		{"empty", "  \n\t ", 2, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, tt.minLen)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
