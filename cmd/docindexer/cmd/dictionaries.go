package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
)

// buildExtractor loads the dictionaries named by cfg. The stop-word list is
// mandatory; a missing lemma or frequency dictionary only disables that step.
func buildExtractor(cfg *config.Config) (*keywords.Extractor, error) {
	stop, err := stopwords.Load(cfg.Dictionaries.StopWords)
	if err != nil {
		return nil, err
	}
	mode, err := keywords.ParseWeightMode(cfg.Indexer.WeightMode)
	if err != nil {
		return nil, fmt.Errorf("indexer.weightMode: %w", err)
	}

	ex := &keywords.Extractor{
		Stop:              stop,
		MinTokenLength:    cfg.Indexer.MinTokenLength,
		TitleWeight:       cfg.Indexer.TitleWeight,
		DescriptionWeight: cfg.Indexer.DescriptionWeight,
		Mode:              mode,
		Workers:           cfg.Indexer.Workers,
		ChunkSize:         cfg.Indexer.ChunkSize,
	}

	if lemmas := loadLemmas(cfg.Dictionaries.Lemmas); lemmas != nil {
		ex.Lemmas = lemmas
	}
	if freq := loadFrequencies(cfg.Dictionaries.Frequency); freq != nil {
		corrector, err := spelling.NewCachedCorrector(spelling.NewCorrector(freq, nil), cfg.Indexer.SpellingCacheSize)
		if err != nil {
			return nil, err
		}
		ex.Corrector = corrector
	}

	slog.Info("dictionaries loaded",
		"stop_words", stop.Len(),
		"lemmatisation", ex.Lemmas != nil,
		"spelling_correction", ex.Corrector != nil,
		"weight_mode", mode.String(),
	)
	return ex, nil
}

func loadLemmas(path string) *lexicon.Dictionary {
	if path == "" {
		slog.Warn("no lemma dictionary configured, lemmatisation disabled")
		return nil
	}
	d, err := lexicon.Load(path)
	if err != nil {
		slog.Warn("lemma dictionary unavailable, lemmatisation disabled", "path", path, "error", err)
		return nil
	}
	slog.Info("lemma dictionary loaded", "path", path, "entries", d.Len())
	return d
}

func loadFrequencies(path string) *frequency.Dictionary {
	if path == "" {
		slog.Warn("no frequency dictionary configured, spelling correction disabled")
		return nil
	}
	d, err := frequency.Load(path)
	if err != nil {
		slog.Warn("frequency dictionary unavailable, spelling correction disabled", "path", path, "error", err)
		return nil
	}
	slog.Info("frequency dictionary loaded", "path", path, "words", d.Len(), "tokens", d.Total())
	return d
}
