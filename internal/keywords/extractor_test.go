package keywords

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
)

type mapLexicon map[string]uint64

func (m mapLexicon) Frequency(word string) uint64 { return m[word] }

func testLemmas(t *testing.T) *lexicon.Dictionary {
	t.Helper()
	table := strings.Join([]string{
		"chats|Ncmp|chat",
		"chiens|Ncmp|chien",
		"mangeait|Vmii3s-|manger",
		"suis|Vmip1s-|être",
		"souris|Ncfp|souris",
	}, "\n")
	d, _, err := lexicon.Compile(strings.NewReader(table))
	require.NoError(t, err)
	return d
}

func TestExtract_CorpusWithKnownSat(t *testing.T) {
	e := &Extractor{
		Stop:      stopwords.New("the"),
		Corrector: spelling.NewCorrector(mapLexicon{"the": 100, "cat": 50, "sat": 1}, nil),
	}
	res := e.Extract(Document{Body: "The cta sat"})
	assert.Equal(t, map[string]uint64{"cat": 1, "sat": 1}, res.Keywords)
	assert.Equal(t, 1, res.Stats.Corrected)
	assert.Equal(t, 1, res.Stats.Known)
	assert.Equal(t, 1, res.Stats.StopWords)
}

func TestExtract_SatIsOneEditFromCat(t *testing.T) {
	e := &Extractor{
		Stop:      stopwords.New("the"),
		Corrector: spelling.NewCorrector(mapLexicon{"the": 100, "cat": 50, "cta": 0}, nil),
	}
	res := e.Extract(Document{Body: "The cta sat"})
	assert.Equal(t, map[string]uint64{"cat": 2}, res.Keywords)
	assert.Equal(t, 2, res.Stats.Corrected)
}

func TestExtract_WeightsAreAdditive(t *testing.T) {
	e := &Extractor{Stop: stopwords.New()}
	res := e.Extract(Document{Title: "Chat", Body: "chat noir, chat"})
	assert.Equal(t, uint64(4), res.Keywords["chat"])
	assert.Equal(t, uint64(1), res.Keywords["noir"])
	assert.Equal(t, uint64(2), res.Modifiers["chat"])
	assert.Equal(t, uint64(1), res.Modifiers["noir"])
}

func TestExtract_CustomWeights(t *testing.T) {
	e := &Extractor{Stop: stopwords.New(), TitleWeight: 5, DescriptionWeight: 3}
	res := e.Extract(Document{Title: "maison", Description: "maison jardin", Body: "maison"})
	assert.Equal(t, uint64(5+3+1), res.Keywords["maison"])
	assert.Equal(t, uint64(3), res.Keywords["jardin"])
	assert.Equal(t, uint64(5), res.Modifiers["maison"])
}

func TestExtract_WeightModes(t *testing.T) {
	doc := Document{Title: "chat chat chat", Description: "chien", Body: "chat"}

	multiply := (&Extractor{Stop: stopwords.New()}).Extract(doc)
	assert.Equal(t, uint64(3*2+1), multiply.Keywords["chat"])
	assert.Equal(t, uint64(2), multiply.Keywords["chien"])

	bonus := (&Extractor{Stop: stopwords.New(), Mode: WeightBonus}).Extract(doc)
	assert.Equal(t, uint64(3+2+1), bonus.Keywords["chat"])
	assert.Equal(t, uint64(1+2), bonus.Keywords["chien"])
}

func TestExtract_LemmasAndStopWordsAfterNormalisation(t *testing.T) {
	e := &Extractor{
		Stop:   stopwords.New("le", "les", "être"),
		Lemmas: testLemmas(t),
	}
	res := e.Extract(Document{Body: "Les chats mangeait. Je suis là, le chien et les chiens."})

	assert.Equal(t, map[string]uint64{"chat": 1, "manger": 1, "chien": 2}, res.Keywords)
	assert.Equal(t, 4, res.Stats.Lemmatized)
	assert.NotContains(t, res.Keywords, "être", "a lemma that is a stop word is dropped")
}

func TestExtract_CorrectedWordIsLemmatised(t *testing.T) {
	e := &Extractor{
		Stop:      stopwords.New(),
		Lemmas:    testLemmas(t),
		Corrector: spelling.NewCorrector(mapLexicon{"chats": 10}, nil),
	}
	res := e.Extract(Document{Body: "chatz"})
	assert.Equal(t, map[string]uint64{"chat": 1}, res.Keywords)
}

func TestExtract_NeverEmitsShortOrStopWords(t *testing.T) {
	stop := stopwords.New("dans", "avec", "pour")
	e := &Extractor{Stop: stop}
	res := e.Extract(Document{
		Title:       "Un an à Paris",
		Description: "de la joie pour tous",
		Body:        "il y a du vent dans les arbres, avec un ciel bleu; l'été où j'ai vu",
	})
	for w := range res.Keywords {
		assert.Greater(t, len([]rune(w)), DefaultMinTokenLength, w)
		assert.False(t, stop.Contains(w), w)
	}
	assert.Contains(t, res.Keywords, "paris")
	assert.Contains(t, res.Keywords, "été")
}

func TestExtract_DegradesWithoutDictionaries(t *testing.T) {
	e := &Extractor{Stop: stopwords.New("le")}
	res := e.Extract(Document{Body: "le chta mangeait"})
	assert.Equal(t, map[string]uint64{"chta": 1, "mangeait": 1}, res.Keywords)
	assert.Equal(t, 2, res.Stats.Unknown)
}

func TestExtract_ChunkedBodyMatchesSequential(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "chats chiens souris mangeait mot%c ", 'a'+rune(i%26))
	}
	doc := Document{Title: "chats", Body: sb.String()}
	lemmas := testLemmas(t)

	sequential := (&Extractor{Stop: stopwords.New(), Lemmas: lemmas, ChunkSize: 1 << 20}).Extract(doc)
	chunked := (&Extractor{Stop: stopwords.New(), Lemmas: lemmas, ChunkSize: 7, Workers: 4}).Extract(doc)

	assert.Equal(t, sequential.Keywords, chunked.Keywords)
	assert.Equal(t, sequential.Stats, chunked.Stats)
	assert.Equal(t, uint64(500+2), chunked.Keywords["chat"])
}

func TestExtract_DecomposedAccentsMatchComposed(t *testing.T) {
	e := &Extractor{Stop: stopwords.New()}
	decomposed := e.Extract(Document{Body: "e\u0301te\u0301 cafe\u0301"})
	composed := e.Extract(Document{Body: "été café"})

	assert.Equal(t, map[string]uint64{"café": 1, "été": 1}, decomposed.Keywords)
	assert.Equal(t, composed.Keywords, decomposed.Keywords)
}

// countingSpeller records how often each word is corrected.
type countingSpeller struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingSpeller) Resolve(word string) (string, spelling.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[word]++
	return word, spelling.OutcomeUnknown
}

func unknownWords(n int) []string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, fmt.Sprintf("mot%c%c%c", 'a'+rune(i/676%26), 'a'+rune(i/26%26), 'a'+rune(i%26)))
	}
	return words
}

func TestExtract_ResolvesEachDistinctWordOnce(t *testing.T) {
	words := unknownWords(3000)
	body := strings.Join(append(words, words...), " ")
	speller := &countingSpeller{calls: make(map[string]int)}
	e := &Extractor{Stop: stopwords.New(), Corrector: speller, Workers: 8}

	res, err := e.ExtractContext(context.Background(), Document{Body: body})
	require.NoError(t, err)

	assert.Len(t, speller.calls, len(words))
	for w, n := range speller.calls {
		assert.Equal(t, 1, n, w)
	}
	assert.Len(t, res.Keywords, len(words))
	assert.Equal(t, uint64(2), res.Keywords[words[0]])
	assert.Equal(t, 2*len(words), res.Stats.Unknown)
	assert.Equal(t, 2*len(words), res.Stats.Tokens)
}

func TestExtractContext_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Extractor{
		Stop:      stopwords.New(),
		Corrector: spelling.NewCorrector(mapLexicon{"maison": 4}, nil),
	}

	_, err := e.ExtractContext(ctx, Document{Body: strings.Join(unknownWords(200), " ")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_Idempotent(t *testing.T) {
	e := &Extractor{
		Stop:      stopwords.New("the"),
		Lemmas:    testLemmas(t),
		Corrector: spelling.NewCorrector(mapLexicon{"cat": 50}, nil),
		ChunkSize: 2,
	}
	doc := Document{Title: "cta", Description: "chats", Body: "the cta chats chiens cta"}
	assert.Equal(t, e.Extract(doc), e.Extract(doc))
}

func TestRecords_SortedWithModifiers(t *testing.T) {
	e := &Extractor{Stop: stopwords.New()}
	res := e.Extract(Document{Title: "zèbre", Body: "zèbre abeille"})

	recs := Records("abc-doc.txt", res)
	require.Len(t, recs, 2)
	assert.Equal(t, KeywordRecord{Word: "abeille", DocumentKey: "abc-doc.txt", Occurrences: 1, WeightModifier: 1}, recs[0])
	assert.Equal(t, KeywordRecord{Word: "zèbre", DocumentKey: "abc-doc.txt", Occurrences: 3, WeightModifier: 2}, recs[1])
}

func TestNormalizeQuery(t *testing.T) {
	e := &Extractor{
		Stop:      stopwords.New("les"),
		Lemmas:    testLemmas(t),
		Corrector: spelling.NewCorrector(mapLexicon{"maison": 4}, nil),
	}
	assert.Equal(t, []string{"chat", "maisn"}, e.NormalizeQuery("les Chats chats maisn"))
	assert.Equal(t, []string{"chat", "maison"}, e.SuggestQuery("les Chats chats maisn"))
	assert.Empty(t, e.NormalizeQuery("les a"))
}

func TestResolve_SingleToken(t *testing.T) {
	e := &Extractor{Stop: stopwords.New("les"), Lemmas: testLemmas(t)}

	tok, ok := e.Resolve("Chiens", Title)
	require.True(t, ok)
	assert.Equal(t, Token{Raw: "chiens", Normalized: "chien", Class: Title}, tok)

	_, ok = e.Resolve("les", Body)
	assert.False(t, ok)
}
