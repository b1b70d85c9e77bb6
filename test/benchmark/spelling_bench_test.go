package benchmark

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
)

var misspelled = []string{"docuemnt", "recherhce", "indxe", "pertinetns", "empreinet"}

func BenchmarkEdits1(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = spelling.Edits1("recherche", spelling.FrenchAlphabet)
	}
}

func BenchmarkCorrect(b *testing.B) {
	c := spelling.NewCorrector(benchFrequencies(), nil)
	b.Run("uncached", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = c.Correct(misspelled[i%len(misspelled)])
		}
	})
	cached, err := spelling.NewCachedCorrector(c, 128)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("cached", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = cached.Correct(misspelled[i%len(misspelled)])
		}
	})
}
