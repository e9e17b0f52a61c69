package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Fingerprint represents a bigram-frequency vector for name similarity.
type Fingerprint struct {
	grams map[string]float64
	norm  float64
}

// NewFingerprint creates a fingerprint from name. Returns nil if the name
// has no letters or digits.
func NewFingerprint(name string) *Fingerprint {
	words := SplitWords(name)
	if len(words) == 0 {
		return nil
	}
	counts := make(map[string]float64)
	for _, word := range words {
		padded := []rune(" " + word + " ")
		for i := 0; i+1 < len(padded); i++ {
			counts[string(padded[i:i+2])]++
		}
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{grams: counts, norm: math.Sqrt(norm)}
}

// SplitWords breaks a pose name into lowercase words at separators, case
// changes and letter/digit boundaries.
func SplitWords(name string) []string {
	var (
		words   []string
		current []rune
		prev    rune
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			prev = 0
			continue
		}
		if prev != 0 && isBoundary(prev, r) {
			flush()
		}
		current = append(current, r)
		prev = r
	}
	flush()
	return words
}

func isBoundary(prev, r rune) bool {
	switch {
	case unicode.IsLower(prev) && unicode.IsUpper(r):
		return true
	case unicode.IsDigit(prev) != unicode.IsDigit(r):
		return true
	default:
		return false
	}
}

// GramCount returns the number of unique bigrams in the fingerprint.
func (f *Fingerprint) GramCount() int {
	if f == nil {
		return 0
	}
	return len(f.grams)
}

// Match is one candidate scored by Rank.
type Match struct {
	Name  string
	Score float64
}

// Rank scores candidates against query and returns those at or above
// threshold, best first. Ties keep alphabetical order.
func Rank(query string, candidates []string, threshold float64) []Match {
	q := NewFingerprint(query)
	if q == nil {
		return nil
	}
	var matches []Match
	for _, candidate := range candidates {
		score := CosineSimilarity(q, NewFingerprint(candidate))
		if score >= threshold {
			matches = append(matches, Match{Name: candidate, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	return matches
}
