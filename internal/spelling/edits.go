package spelling

import "iter"

// FrenchAlphabet is the letter set used to generate substitutions and
// insertions. Keeping it small bounds the edit-distance-2 candidate space.
var FrenchAlphabet = []rune("aàâbcdeéèëêfghiîïjklmnoôpqrstuûüvwxyÿzæœç")

// Edits1 returns every distinct string one edit away from word: deletions,
// adjacent transpositions, substitutions and insertions over alphabet.
// Order is deterministic.
func Edits1(word string, alphabet []rune) []string {
	runes := []rune(word)
	n := len(runes)
	size := (2*n + 1) * (len(alphabet) + 1)
	seen := make(map[string]struct{}, size)
	out := make([]string, 0, size)
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	buf := make([]rune, 0, n+1)
	for i := 0; i <= n; i++ {
		left, right := runes[:i], runes[i:]
		if len(right) > 0 {
			buf = append(append(buf[:0], left...), right[1:]...)
			add(string(buf))
		}
		if len(right) > 1 {
			buf = append(append(buf[:0], left...), right[1], right[0])
			buf = append(buf, right[2:]...)
			add(string(buf))
		}
		for _, c := range alphabet {
			if len(right) > 0 && c != right[0] {
				buf = append(append(buf[:0], left...), c)
				buf = append(buf, right[1:]...)
				add(string(buf))
			}
			buf = append(append(buf[:0], left...), c)
			buf = append(buf, right...)
			add(string(buf))
		}
	}
	return out
}

// Edits2 yields Edits1 of every Edits1 variant of word. Variants are
// generated lazily and may repeat; word itself is among them.
func Edits2(word string, alphabet []rune) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e1 := range Edits1(word, alphabet) {
			for _, e2 := range Edits1(e1, alphabet) {
				if !yield(e2) {
					return
				}
			}
		}
	}
}
