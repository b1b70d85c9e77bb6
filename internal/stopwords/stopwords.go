// Package stopwords holds the set of words that carry no indexing value.
package stopwords

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrStopWordsUnavailable means the list could not be read. Indexing must
// not start without it.
var ErrStopWordsUnavailable = errors.New("stop-word list unavailable")

// Set is an immutable membership set of case-folded words.
type Set struct {
	words map[string]struct{}
}

// New builds a set from words, folded the same way as list files.
func New(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = normalize(w); w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Load reads one word per line. Blank lines and lines starting with '#' are
// ignored.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStopWordsUnavailable, err)
	}
	defer f.Close()

	s := &Set{words: make(map[string]struct{})}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.words[normalize(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStopWordsUnavailable, path, err)
	}
	return s, nil
}

func normalize(w string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(w)))
}

// Contains reports whether word, folded, is a stop word. A nil set holds
// nothing.
func (s *Set) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[normalize(word)]
	return ok
}

// Len returns the number of distinct words.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}
