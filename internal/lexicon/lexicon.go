// Package lexicon compiles and serves the lemma dictionary: a read-only
// mapping from an inflected French word form to its lemma and part of speech.
//
// The source is a GLÀFF-style table, one form per line, fields separated by
// '|': surface form, GRACE morphosyntactic tag, lemma, then optional columns
// that are ignored. Lookups fold case and keep diacritics.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/dictfile"
)

// ErrEmptySource is returned when a table yields no usable row.
var ErrEmptySource = errors.New("lexicon: source contains no valid entries")

const maxLineSize = 1 << 20

// POSTag is the part of speech, the first letter of a GRACE tag.
type POSTag byte

const (
	POSUnknown      POSTag = 0
	POSNoun         POSTag = 'N'
	POSVerb         POSTag = 'V'
	POSAdjective    POSTag = 'A'
	POSPronoun      POSTag = 'P'
	POSDeterminer   POSTag = 'D'
	POSAdverb       POSTag = 'R'
	POSAdposition   POSTag = 'S'
	POSConjunction  POSTag = 'C'
	POSInterjection POSTag = 'I'
	POSResidual     POSTag = 'X'
)

func (p POSTag) String() string {
	switch p {
	case POSNoun:
		return "noun"
	case POSVerb:
		return "verb"
	case POSAdjective:
		return "adjective"
	case POSPronoun:
		return "pronoun"
	case POSDeterminer:
		return "determiner"
	case POSAdverb:
		return "adverb"
	case POSAdposition:
		return "adposition"
	case POSConjunction:
		return "conjunction"
	case POSInterjection:
		return "interjection"
	case POSResidual:
		return "residual"
	default:
		return "unknown"
	}
}

func parsePOS(grace string) POSTag {
	if grace == "" {
		return POSUnknown
	}
	switch tag := POSTag(grace[0]); tag {
	case POSNoun, POSVerb, POSAdjective, POSPronoun, POSDeterminer, POSAdverb,
		POSAdposition, POSConjunction, POSInterjection, POSResidual:
		return tag
	default:
		return POSUnknown
	}
}

// Fold is the key normalisation shared by compilation and lookup: trimmed,
// lower-cased and composed to NFC so decomposed accents match.
func Fold(word string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(word)))
}

// LemmaEntry is one resolved surface form.
type LemmaEntry struct {
	SurfaceForm string
	Lemma       string
	POS         POSTag
}

// CompileStats reports what a compilation kept and skipped.
type CompileStats struct {
	Rows       int
	Entries    int
	Malformed  int
	Duplicates int
}

// Dictionary is an immutable sorted table. It is safe for concurrent use.
type Dictionary struct {
	forms  []string
	lemmas []string
	tags   []POSTag
}

// Compile parses a GLÀFF-style table. Malformed rows are skipped and counted;
// when a form is listed twice the first row wins.
func Compile(r io.Reader) (*Dictionary, CompileStats, error) {
	var stats CompileStats
	seen := make(map[string]LemmaEntry)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		stats.Rows++
		fields := strings.SplitN(line, "|", 4)
		if len(fields) < 3 {
			stats.Malformed++
			continue
		}
		form := Fold(fields[0])
		lemma := norm.NFC.String(strings.TrimSpace(fields[2]))
		if form == "" || lemma == "" {
			stats.Malformed++
			continue
		}
		if _, dup := seen[form]; dup {
			stats.Duplicates++
			continue
		}
		seen[form] = LemmaEntry{SurfaceForm: form, Lemma: lemma, POS: parsePOS(strings.TrimSpace(fields[1]))}
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading lemma table: %w", err)
	}
	if len(seen) == 0 {
		return nil, stats, ErrEmptySource
	}

	forms := make([]string, 0, len(seen))
	for form := range seen {
		forms = append(forms, form)
	}
	slices.Sort(forms)
	d := &Dictionary{
		forms:  forms,
		lemmas: make([]string, len(forms)),
		tags:   make([]POSTag, len(forms)),
	}
	for i, form := range forms {
		d.lemmas[i] = seen[form].Lemma
		d.tags[i] = seen[form].POS
	}
	stats.Entries = len(forms)
	return d, stats, nil
}

// CompileFile compiles the table at src into a binary artifact at dst.
func CompileFile(src, dst string) (CompileStats, error) {
	f, err := os.Open(src)
	if err != nil {
		return CompileStats{}, fmt.Errorf("opening lemma table: %w", err)
	}
	defer f.Close()

	d, stats, err := Compile(f)
	if err != nil {
		return stats, err
	}
	if err := d.WriteFile(dst); err != nil {
		return stats, fmt.Errorf("writing lemma dictionary: %w", err)
	}
	return stats, nil
}

// WriteFile stores the dictionary as a lemma artifact.
func (d *Dictionary) WriteFile(path string) error {
	entries := make([]dictfile.Entry, len(d.forms))
	for i := range d.forms {
		entries[i] = dictfile.Entry{Key: d.forms[i], Text: d.lemmas[i], Number: uint64(d.tags[i])}
	}
	return dictfile.WriteFile(path, dictfile.KindLemma, entries)
}

// Load reads a compiled lemma artifact from disk.
func Load(path string) (*Dictionary, error) {
	entries, err := dictfile.ReadFile(path, dictfile.KindLemma)
	if err != nil {
		return nil, fmt.Errorf("loading lemma dictionary: %w", err)
	}
	return fromEntries(entries), nil
}

// Read decodes a compiled lemma artifact from r.
func Read(r io.Reader) (*Dictionary, error) {
	entries, err := dictfile.Decode(r, dictfile.KindLemma)
	if err != nil {
		return nil, fmt.Errorf("loading lemma dictionary: %w", err)
	}
	return fromEntries(entries), nil
}

func fromEntries(entries []dictfile.Entry) *Dictionary {
	d := &Dictionary{
		forms:  make([]string, len(entries)),
		lemmas: make([]string, len(entries)),
		tags:   make([]POSTag, len(entries)),
	}
	for i, e := range entries {
		d.forms[i] = e.Key
		d.lemmas[i] = e.Text
		d.tags[i] = POSTag(e.Number)
	}
	return d
}

// Lookup resolves word to its lemma. A miss is reported through the bool.
func (d *Dictionary) Lookup(word string) (LemmaEntry, bool) {
	if d == nil {
		return LemmaEntry{}, false
	}
	key := Fold(word)
	i, found := slices.BinarySearch(d.forms, key)
	if !found {
		return LemmaEntry{}, false
	}
	return LemmaEntry{SurfaceForm: key, Lemma: d.lemmas[i], POS: d.tags[i]}, true
}

// Len returns the number of surface forms.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.forms)
}
