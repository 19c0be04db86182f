// Package canon provides the canonical text normalization used for every
// deterministic comparison in the extraction pipeline.
//
// All comparisons (exact dedup keys, trigram sets, frequency counting) go
// through Text so that two spans that differ only in punctuation, casing,
// compatibility forms, or whitespace compare equal.
package canon

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text canonicalizes a string for deterministic comparison:
// every punctuation (P*) or symbol (S*) rune becomes a space, the result is
// NFKC-normalized, lowercased, and runs of whitespace collapse to one space
// with leading/trailing whitespace trimmed. Total over all strings.
func Text(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	t := norm.NFKC.String(b.String())
	t = strings.ToLower(t)
	return strings.Join(strings.Fields(t), " ")
}

// Words returns the number of whitespace-separated tokens in the
// canonicalized form of s. Returns 0 when s normalizes to empty.
func Words(s string) int {
	t := Text(s)
	if t == "" {
		return 0
	}
	return len(strings.Fields(t))
}

// Ngrams3 returns the set of character trigrams of the canonicalized form
// of s. Trigrams are built over runes, not bytes.
func Ngrams3(s string) map[string]struct{} {
	t := []rune(Text(s))
	out := make(map[string]struct{})
	for i := 0; i+3 <= len(t); i++ {
		out[string(t[i:i+3])] = struct{}{}
	}
	return out
}

// Jaccard3 computes trigram Jaccard similarity between two strings.
// When both trigram sets are empty the strings are treated as maximally
// similar (1.0), so degenerate short strings collapse together instead of
// dividing by zero.
func Jaccard3(a, b string) float64 {
	na := Ngrams3(a)
	nb := Ngrams3(b)
	inter := 0
	for g := range na {
		if _, ok := nb[g]; ok {
			inter++
		}
	}
	union := len(na) + len(nb) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// Quant quantizes a score to an integer at 6 decimal places. Score order
// comparisons always happen on quantized values: comparing pre-rounded
// integers is reproducible across platforms where raw float comparison
// is not.
func Quant(x float64) int64 {
	return int64(math.Round(x * 1_000_000))
}
