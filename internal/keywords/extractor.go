// Package keywords turns plain text into weighted keyword counts. Each token
// is filtered against stop words, resolved to a lemma or a spelling
// correction, and accumulated with a weight that depends on whether it came
// from the title, the description or the body.
package keywords

import (
	"context"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
)

const (
	DefaultTitleWeight       uint64 = 2
	DefaultDescriptionWeight uint64 = 2
	DefaultChunkSize                = 32
)

// Lemmatizer resolves a surface form. *lexicon.Dictionary implements it.
type Lemmatizer interface {
	Lookup(word string) (lexicon.LemmaEntry, bool)
}

// Speller corrects unknown words. *spelling.Corrector and
// *spelling.CachedCorrector implement it.
type Speller interface {
	Resolve(word string) (string, spelling.Outcome)
}

// Extractor holds the read-only dictionaries and the weighting settings.
// Lemmas and Corrector are optional; zero numeric fields take defaults.
// Every distinct word is resolved once; ChunkSize distinct words make one
// task for the Workers pool.
// An Extractor is safe for concurrent use once configured.
type Extractor struct {
	Stop              *stopwords.Set
	Lemmas            Lemmatizer
	Corrector         Speller
	MinTokenLength    int
	TitleWeight       uint64
	DescriptionWeight uint64
	Mode              WeightMode
	Workers           int
	ChunkSize         int
}

func (e *Extractor) minLen() int {
	if e.MinTokenLength > 0 {
		return e.MinTokenLength
	}
	return DefaultMinTokenLength
}

func (e *Extractor) modifier(c WeightClass) uint64 {
	switch c {
	case Title:
		if e.TitleWeight > 0 {
			return e.TitleWeight
		}
		return DefaultTitleWeight
	case Description:
		if e.DescriptionWeight > 0 {
			return e.DescriptionWeight
		}
		return DefaultDescriptionWeight
	default:
		return 1
	}
}

func (e *Extractor) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

func (e *Extractor) chunkSize() int {
	if e.ChunkSize > 0 {
		return e.ChunkSize
	}
	return DefaultChunkSize
}

// Resolve normalises one raw token. It returns false when the token is too
// short or a stop word, before or after normalisation.
func (e *Extractor) Resolve(raw string, class WeightClass) (Token, bool) {
	var st Stats
	return e.resolve(raw, class, true, &st)
}

func (e *Extractor) resolve(raw string, class WeightClass, correct bool, st *Stats) (Token, bool) {
	st.Tokens++
	raw = lexicon.Fold(raw)
	if isShort(raw, e.minLen()) {
		st.Short++
		return Token{}, false
	}
	if e.Stop.Contains(raw) {
		st.StopWords++
		return Token{}, false
	}

	word := raw
	if entry, ok := e.lookup(raw); ok {
		word = lexicon.Fold(entry.Lemma)
		st.Lemmatized++
	} else if correct && e.Corrector != nil {
		corrected, outcome := e.Corrector.Resolve(raw)
		switch outcome {
		case spelling.OutcomeKnown:
			st.Known++
		case spelling.OutcomeCorrected:
			st.Corrected++
			word = corrected
			if entry, ok := e.lookup(corrected); ok {
				word = lexicon.Fold(entry.Lemma)
			}
		default:
			st.Unknown++
		}
	} else {
		st.Unknown++
	}

	if isShort(word, e.minLen()) {
		st.Short++
		return Token{}, false
	}
	if e.Stop.Contains(word) {
		st.StopWords++
		return Token{}, false
	}
	return Token{Raw: raw, Normalized: word, Class: class}, true
}

func (e *Extractor) lookup(word string) (lexicon.LemmaEntry, bool) {
	if e.Lemmas == nil {
		return lexicon.LemmaEntry{}, false
	}
	return e.Lemmas.Lookup(word)
}

// resolution is the outcome of one distinct raw word, with the stats of a
// single occurrence.
type resolution struct {
	word  string
	ok    bool
	stats Stats
}

// tally counts raw occurrences in first-seen order.
func tally(words []string) (order []string, counts map[string]uint64) {
	counts = make(map[string]uint64, len(words))
	for _, w := range words {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	return order, counts
}

// resolveAll resolves every distinct word once. Batches of ChunkSize words
// run on a bounded worker pool, so a document full of unknown words spreads
// its spelling searches over all workers. It stops early when ctx ends.
func (e *Extractor) resolveAll(ctx context.Context, distinct []string) (map[string]resolution, error) {
	out := make([]resolution, len(distinct))
	size := e.chunkSize()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for start := 0; start < len(distinct); start += size {
		end := min(start+size, len(distinct))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				var st Stats
				tok, ok := e.resolve(distinct[i], Body, true, &st)
				out[i] = resolution{word: tok.Normalized, ok: ok, stats: st}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byWord := make(map[string]resolution, len(distinct))
	for i, w := range distinct {
		byWord[w] = out[i]
	}
	return byWord, nil
}

// Extract computes the weighted keyword table of doc. It never fails and
// holds no state between calls.
func (e *Extractor) Extract(doc Document) Result {
	res, _ := e.ExtractContext(context.Background(), doc)
	return res
}

// ExtractContext is Extract that gives up with ctx's error once ctx is done.
func (e *Extractor) ExtractContext(ctx context.Context, doc Document) (Result, error) {
	sources := []struct {
		class WeightClass
		words []string
	}{
		{Title, splitWords(doc.Title)},
		{Description, splitWords(doc.Description)},
		{Body, splitWords(doc.Body)},
	}

	all := make([]string, 0, len(sources[0].words)+len(sources[1].words)+len(sources[2].words))
	for _, src := range sources {
		all = append(all, src.words...)
	}
	distinct, _ := tally(all)
	resolved, err := e.resolveAll(ctx, distinct)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Keywords:  make(map[string]uint64),
		Modifiers: make(map[string]uint64),
	}
	for _, src := range sources {
		mod := e.modifier(src.class)
		order, counts := tally(src.words)
		perWord := make(map[string]uint64)
		for _, raw := range order {
			r, n := resolved[raw], counts[raw]
			res.Stats.add(r.stats.times(int(n)))
			if r.ok {
				perWord[r.word] += n
			}
		}
		for w, n := range perWord {
			res.Keywords[w] += e.weigh(n, mod, src.class)
			if mod > res.Modifiers[w] {
				res.Modifiers[w] = mod
			}
		}
	}
	return res, nil
}

func (e *Extractor) weigh(count, mod uint64, class WeightClass) uint64 {
	if e.Mode == WeightBonus {
		if class == Body {
			return count
		}
		return count + mod
	}
	return count * mod
}

// NormalizeQuery resolves query text to search terms through the same
// stop-word and lemma steps as indexing, without spelling correction.
// Terms are unique and keep their first-seen order.
func (e *Extractor) NormalizeQuery(q string) []string {
	return e.queryTerms(q, false)
}

// SuggestQuery is NormalizeQuery with spelling correction applied to words
// the lemma dictionary does not know.
func (e *Extractor) SuggestQuery(q string) []string {
	return e.queryTerms(q, true)
}

func (e *Extractor) queryTerms(q string, correct bool) []string {
	var st Stats
	var terms []string
	for _, w := range splitWords(q) {
		tok, ok := e.resolve(w, Body, correct, &st)
		if ok && !slices.Contains(terms, tok.Normalized) {
			terms = append(terms, tok.Normalized)
		}
	}
	return terms
}

// Records converts res into persistence records sorted by word.
func Records(docKey string, res Result) []KeywordRecord {
	out := make([]KeywordRecord, 0, len(res.Keywords))
	for w, n := range res.Keywords {
		if n == 0 {
			continue
		}
		mod := res.Modifiers[w]
		if mod == 0 {
			mod = 1
		}
		out = append(out, KeywordRecord{Word: w, DocumentKey: docKey, Occurrences: n, WeightModifier: mod})
	}
	slices.SortFunc(out, func(a, b KeywordRecord) int { return strings.Compare(a.Word, b.Word) })
	return out
}
