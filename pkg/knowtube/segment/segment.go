// Package segment splits transcripts into character windows and windows
// into sentences. Both splits are position-stable: offsets are rune offsets
// into the original text, so the same transcript always yields the same
// spans.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Window is a contiguous slice of the transcript, sized for downstream
// context limits. Start and End are rune offsets into the full text.
type Window struct {
	Start int
	End   int
	Text  string
	Index int
}

// Windows walks the text in windowChars-sized steps. When a tentative window
// end falls before the end of the text, the window snaps back to just after
// the last ". " inside it, so windows end at sentence boundaries when
// possible; otherwise it hard-cuts at windowChars. The windows cover the
// whole text exactly once, in order. windowChars must be positive.
func Windows(text string, windowChars int) []Window {
	if windowChars < 1 {
		windowChars = 1
	}
	runes := []rune(text)
	length := len(runes)

	var out []Window
	i := 0
	idx := 0
	for i < length {
		end := i + windowChars
		if end > length {
			end = length
		}
		if end < length {
			chunk := string(runes[i:end])
			if b := strings.LastIndex(chunk, ". "); b > 0 {
				end = i + utf8.RuneCountInString(chunk[:b]) + 2
			}
		}
		out = append(out, Window{
			Start: i,
			End:   end,
			Text:  string(runes[i:end]),
			Index: idx,
		})
		idx++
		i = end
	}
	return out
}

// Sentence is a punctuation-terminated span within a window. Start and End
// are rune offsets into the window text.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// Sentences splits window text into sentences: a maximal run of
// non-terminator runes followed by one or more of ".!?", accepted only when
// followed by optional closing punctuation then whitespace, or end of text.
// This is a best-effort heuristic, not a full sentence tokenizer; it makes
// no attempt to protect abbreviations. If no sentence is found in non-blank
// text, the whole text is returned as a single sentence so content is never
// silently dropped.
func Sentences(s string) []Sentence {
	runes := []rune(s)
	n := len(runes)

	var out []Sentence
	i := 0
	for i < n {
		if isTerminator(runes[i]) {
			i++
			continue
		}
		j := i
		for j < n && !isTerminator(runes[j]) {
			j++
		}
		if j == n {
			break
		}
		k := j
		for k < n && isTerminator(runes[k]) {
			k++
		}
		if boundaryFollows(runes, k) {
			out = append(out, Sentence{
				Text:  string(runes[i:k]),
				Start: i,
				End:   k,
			})
		}
		i = k
	}

	if len(out) == 0 && strings.TrimSpace(s) != "" {
		out = append(out, Sentence{Text: s, Start: 0, End: n})
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '\\', '"', '\'', ')', ']':
		return true
	}
	return false
}

// boundaryFollows reports whether position k (just past a terminator run)
// is a sentence boundary: end of text, or optional closers followed by
// whitespace.
func boundaryFollows(runes []rune, k int) bool {
	if k == len(runes) {
		return true
	}
	m := k
	for m < len(runes) && isCloser(runes[m]) {
		m++
	}
	return m < len(runes) && unicode.IsSpace(runes[m])
}
