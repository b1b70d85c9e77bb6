// Package spelling implements a Norvig-style statistical spell corrector
// over a word frequency table.
package spelling

// Lexicon is the probability model: the frequency of a word, zero when
// unknown. *frequency.Dictionary satisfies it.
type Lexicon interface {
	Frequency(word string) uint64
}

// Outcome classifies how a word was resolved.
type Outcome int

const (
	OutcomeKnown Outcome = iota
	OutcomeCorrected
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeKnown:
		return "known"
	case OutcomeCorrected:
		return "corrected"
	default:
		return "unknown"
	}
}

// Corrector proposes the most frequent known word within two edits. It
// holds no mutable state and is safe for concurrent use.
type Corrector struct {
	dict     Lexicon
	alphabet []rune
}

// NewCorrector returns a corrector over dict. A nil dict makes every word
// pass through unchanged; a nil alphabet selects FrenchAlphabet.
func NewCorrector(dict Lexicon, alphabet []rune) *Corrector {
	if alphabet == nil {
		alphabet = FrenchAlphabet
	}
	return &Corrector{dict: dict, alphabet: alphabet}
}

// Correct returns the best correction of word, or word itself.
func (c *Corrector) Correct(word string) string {
	w, _ := c.Resolve(word)
	return w
}

// Resolve runs the cascade: known as-is, best known edit-1 variant, best
// known edit-2 variant, otherwise unchanged. Best means highest frequency,
// ties going to the lexicographically smallest word.
func (c *Corrector) Resolve(word string) (string, Outcome) {
	if c == nil || c.dict == nil || word == "" {
		return word, OutcomeUnknown
	}
	if c.dict.Frequency(word) > 0 {
		return word, OutcomeKnown
	}

	var b best
	for _, e := range Edits1(word, c.alphabet) {
		b.consider(e, c.dict.Frequency(e))
	}
	if b.found() {
		return b.word, OutcomeCorrected
	}

	for e := range Edits2(word, c.alphabet) {
		b.consider(e, c.dict.Frequency(e))
	}
	if b.found() {
		return b.word, OutcomeCorrected
	}
	return word, OutcomeUnknown
}

type best struct {
	word  string
	count uint64
}

func (b *best) consider(word string, count uint64) {
	if count == 0 {
		return
	}
	if count > b.count || (count == b.count && word < b.word) {
		b.word, b.count = word, count
	}
}

func (b *best) found() bool { return b.count > 0 }
