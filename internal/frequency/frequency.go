// Package frequency compiles and serves the word frequency table used as
// the probability model for spelling correction.
package frequency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/dictfile"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
)

// ErrEmptyCorpus is returned when a corpus yields no countable word.
var ErrEmptyCorpus = errors.New("frequency: corpus contains no words")

// Options tune corpus compilation. Zero values take defaults.
type Options struct {
	MinTokenLength int
	Workers        int
}

// CompileStats reports the outcome of a corpus scan.
type CompileStats struct {
	Files        int
	Skipped      int
	SkippedPaths []string
	Tokens       uint64
	Words        int
}

// Dictionary maps words to their corpus counts. Counts are strictly
// positive. It is immutable and safe for concurrent use.
type Dictionary struct {
	counts map[string]uint64
	total  uint64
}

// New builds a dictionary from counts. Zero counts are dropped.
func New(counts map[string]uint64) *Dictionary {
	d := &Dictionary{counts: make(map[string]uint64, len(counts))}
	for w, n := range counts {
		if n == 0 {
			continue
		}
		d.counts[w] = n
		d.total += n
	}
	return d
}

// Compile counts every word of every regular file under dir. Stop words and
// short tokens are not counted. Files are read by a worker pool, each with
// its own counter; the counters are summed once all files are done.
// Unreadable files are skipped and reported in the stats.
func Compile(ctx context.Context, dir string, stop *stopwords.Set, opts Options) (*Dictionary, CompileStats, error) {
	var stats CompileStats
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			stats.Skipped++
			stats.SkippedPaths = append(stats.SkippedPaths, path)
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walking corpus %s: %w", dir, err)
	}
	slices.Sort(paths)

	minLen := opts.MinTokenLength
	if minLen <= 0 {
		minLen = keywords.DefaultMinTokenLength
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	perFile := make([]map[string]uint64, len(paths))
	failed := make([]bool, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				failed[i] = true
				return nil
			}
			counts := make(map[string]uint64)
			for _, w := range keywords.Tokenize(string(data), minLen) {
				if !stop.Contains(w) {
					counts[w]++
				}
			}
			perFile[i] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, fmt.Errorf("compiling corpus: %w", err)
	}

	merged := make(map[string]uint64)
	for i, counts := range perFile {
		if failed[i] {
			stats.Skipped++
			stats.SkippedPaths = append(stats.SkippedPaths, paths[i])
			continue
		}
		stats.Files++
		for w, n := range counts {
			merged[w] += n
			stats.Tokens += n
		}
	}
	if len(merged) == 0 {
		return nil, stats, ErrEmptyCorpus
	}
	d := New(merged)
	stats.Words = d.Len()
	return d, stats, nil
}

// CompileDir loads the stop words at stopPath, compiles the corpus under dir
// and writes the artifact to dst.
func CompileDir(ctx context.Context, dir, stopPath, dst string) (CompileStats, error) {
	stop, err := stopwords.Load(stopPath)
	if err != nil {
		return CompileStats{}, err
	}
	d, stats, err := Compile(ctx, dir, stop, Options{})
	if err != nil {
		return stats, err
	}
	if err := d.WriteFile(dst); err != nil {
		return stats, fmt.Errorf("writing frequency dictionary: %w", err)
	}
	return stats, nil
}

// WriteFile stores the dictionary as a frequency artifact.
func (d *Dictionary) WriteFile(path string) error {
	entries := make([]dictfile.Entry, 0, len(d.counts))
	for w, n := range d.counts {
		entries = append(entries, dictfile.Entry{Key: w, Number: n})
	}
	return dictfile.WriteFile(path, dictfile.KindFrequency, entries)
}

// Load reads a compiled frequency artifact from disk.
func Load(path string) (*Dictionary, error) {
	entries, err := dictfile.ReadFile(path, dictfile.KindFrequency)
	if err != nil {
		return nil, fmt.Errorf("loading frequency dictionary: %w", err)
	}
	return fromEntries(entries), nil
}

// Read decodes a compiled frequency artifact from r.
func Read(r io.Reader) (*Dictionary, error) {
	entries, err := dictfile.Decode(r, dictfile.KindFrequency)
	if err != nil {
		return nil, fmt.Errorf("loading frequency dictionary: %w", err)
	}
	return fromEntries(entries), nil
}

func fromEntries(entries []dictfile.Entry) *Dictionary {
	counts := make(map[string]uint64, len(entries))
	for _, e := range entries {
		counts[e.Key] = e.Number
	}
	return New(counts)
}

// Frequency returns the count of word, zero when absent.
func (d *Dictionary) Frequency(word string) uint64 {
	if d == nil {
		return 0
	}
	return d.counts[word]
}

// Contains reports whether word occurs in the corpus.
func (d *Dictionary) Contains(word string) bool {
	return d.Frequency(word) > 0
}

// Total returns the sum of all counts.
func (d *Dictionary) Total() uint64 {
	if d == nil {
		return 0
	}
	return d.total
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.counts)
}
