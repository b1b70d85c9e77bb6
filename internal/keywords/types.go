package keywords

import "fmt"

// WeightClass is where in a document a token was found.
type WeightClass int

const (
	Body WeightClass = iota
	Title
	Description
)

func (c WeightClass) String() string {
	switch c {
	case Body:
		return "body"
	case Title:
		return "title"
	case Description:
		return "description"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// WeightMode selects how title and description occurrences are weighted.
type WeightMode int

const (
	// WeightMultiply adds count × modifier for every source.
	WeightMultiply WeightMode = iota
	// WeightBonus adds the plain count, plus the modifier once per word for
	// each title or description source it appears in.
	WeightBonus
)

// ParseWeightMode maps a configuration value to a WeightMode.
func ParseWeightMode(s string) (WeightMode, error) {
	switch s {
	case "", "multiply":
		return WeightMultiply, nil
	case "bonus":
		return WeightBonus, nil
	default:
		return 0, fmt.Errorf("unknown weight mode %q", s)
	}
}

func (m WeightMode) String() string {
	if m == WeightBonus {
		return "bonus"
	}
	return "multiply"
}

// Token is one occurrence on its way to the accumulator.
type Token struct {
	Raw        string
	Normalized string
	Class      WeightClass
}

// Document is the plain text handed to the extractor. Title and
// Description are optional.
type Document struct {
	Title       string
	Description string
	Body        string
}

// Stats counts how tokens were resolved. It is informational only.
type Stats struct {
	Tokens     int `json:"tokens"`
	Short      int `json:"short"`
	StopWords  int `json:"stop_words"`
	Lemmatized int `json:"lemmatized"`
	Known      int `json:"known"`
	Corrected  int `json:"corrected"`
	Unknown    int `json:"unknown"`
}

func (s Stats) times(n int) Stats {
	return Stats{
		Tokens:     s.Tokens * n,
		Short:      s.Short * n,
		StopWords:  s.StopWords * n,
		Lemmatized: s.Lemmatized * n,
		Known:      s.Known * n,
		Corrected:  s.Corrected * n,
		Unknown:    s.Unknown * n,
	}
}

func (s *Stats) add(o Stats) {
	s.Tokens += o.Tokens
	s.Short += o.Short
	s.StopWords += o.StopWords
	s.Lemmatized += o.Lemmatized
	s.Known += o.Known
	s.Corrected += o.Corrected
	s.Unknown += o.Unknown
}

// Result is the weighted keyword table of one document. Modifiers holds,
// per word, the largest weight modifier among the sources it came from.
type Result struct {
	Keywords  map[string]uint64
	Modifiers map[string]uint64
	Stats     Stats
}

// KeywordRecord is the persisted form of one keyword of one document.
type KeywordRecord struct {
	Word           string `json:"word"`
	DocumentKey    string `json:"document_key"`
	Occurrences    uint64 `json:"occurrences"`
	WeightModifier uint64 `json:"weight_modifier"`
}
