// Package extract implements deterministic knowledge-unit extraction from
// transcripts. Given the same transcript and options, Extract produces the
// same candidate set, byte for byte, on every run and every platform: all
// score comparisons happen on pre-quantized integers, and every tie-break
// is total.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/knowtube/knowtube/pkg/knowtube/canon"
	"github.com/knowtube/knowtube/pkg/knowtube/segment"
)

// ExtractorVersion identifies the extraction algorithm revision reported in
// result metadata. Bump only when output for some input changes.
const ExtractorVersion = "0.3.0"

// Score weights. These are fixed design constants, not configuration:
// changing them changes extraction output for existing transcripts.
const (
	weightFrequency  = 0.4
	weightEarly      = 0.2
	weightLength     = 0.2
	weightImperative = 0.2
)

// Default option values.
const (
	DefaultWindowChars      = 3500
	DefaultMinWords         = 4
	DefaultMaxWords         = 24
	DefaultJaccardThreshold = 0.92

	// Target count derivation: one unit per this many transcript runes,
	// clamped to [MinTargetCount, MaxTargetCount].
	targetCountDivisor = 2500
	MinTargetCount     = 40
	MaxTargetCount     = 90
)

// Unit is one sentence-level extraction candidate. Units are immutable after
// creation: dedup and selection filter and reorder copies, never mutate.
type Unit struct {
	// ID is derived from the window index and absolute rune offsets,
	// "{window}:{start}-{end}". Stable across runs on identical input and
	// unique within one extraction.
	ID string `json:"id"`
	// Text is the exact transcript substring between Start and End, trimmed.
	Text string `json:"text"`
	// Start and End are rune offsets into the original transcript.
	Start int `json:"start"`
	End   int `json:"end"`
	// Score combines frequency, position, length and imperative signals.
	// Not bounded to [0,1]; the frequency term can exceed 1.
	Score float64 `json:"score"`
	// Window is the 0-based index of the window the sentence came from.
	Window int `json:"window"`
}

// Options configures extraction. The zero value of a field selects its
// default; TargetCount 0 derives the count from transcript length and
// PerWindowQuota 0 disables the quota.
type Options struct {
	WindowChars      int
	TargetCount      int
	MinWords         int
	MaxWords         int
	JaccardThreshold float64
	PerWindowQuota   int
	IncludeMeta      bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		WindowChars:      DefaultWindowChars,
		MinWords:         DefaultMinWords,
		MaxWords:         DefaultMaxWords,
		JaccardThreshold: DefaultJaccardThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.WindowChars == 0 {
		o.WindowChars = DefaultWindowChars
	}
	if o.MinWords == 0 {
		o.MinWords = DefaultMinWords
	}
	if o.MaxWords == 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.JaccardThreshold == 0 {
		o.JaccardThreshold = DefaultJaccardThreshold
	}
	return o
}

// Meta describes the configuration an extraction ran with.
type Meta struct {
	ExtractorVersion string  `json:"extractor_version"`
	WindowChars      int     `json:"window_chars"`
	MinWords         int     `json:"min_words"`
	MaxWords         int     `json:"max_words"`
	JaccardThreshold float64 `json:"jaccard_threshold"`
	PerWindowQuota   *int    `json:"per_window_quota"`
}

// Result holds the selected units in ascending (start, text) order.
type Result struct {
	Units []Unit `json:"units"`
	Meta  *Meta  `json:"meta,omitempty"`
}

var imperativeRe = regexp.MustCompile(
	`^(?:(?:you|we)\s+)?(?:must|should|never|always)\b|` +
		`^(?:use|set|avoid|ensure|check|install|enable|disable|measure|calculate)\b`)

// imperativeBoost returns 1 when the canonicalized text opens with a modal
// or a leading instruction verb, else 0.
func imperativeBoost(s string) int {
	if imperativeRe.MatchString(canon.Text(s)) {
		return 1
	}
	return 0
}

// occurrences counts non-overlapping occurrences of needle in haystack and
// returns 1 + count. Both arguments must already be canonicalized. Returns
// 0 for an empty needle.
func occurrences(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	count := 0
	i := 0
	for {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			break
		}
		count++
		i += j + len(needle)
	}
	return 1 + count
}

// rankLess orders candidates by descending quantized score, then ascending
// window, start, and text. This is the canonical global ranking.
func rankLess(a, b Unit) bool {
	qa, qb := canon.Quant(a.Score), canon.Quant(b.Score)
	if qa != qb {
		return qa > qb
	}
	if a.Window != b.Window {
		return a.Window < b.Window
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.Text < b.Text
}

// positionLess orders candidates by ascending start, then text. This is the
// output ordering contract.
func positionLess(a, b Unit) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.Text < b.Text
}

// Extract selects a bounded, ranked set of knowledge-unit candidates from a
// transcript. Pure: no I/O, no shared state, fully deterministic given
// identical inputs. An empty transcript yields zero units.
//
// Pipeline: windowing, sentence splitting, scoring within the word band,
// optional per-window quota, exact-normalized dedup (earliest wins),
// neighbor trigram-Jaccard collapse, quantized global ranking, truncation
// to the target count, and a final re-sort into (start, text) order.
func Extract(transcript string, opts Options) Result {
	opts = opts.withDefaults()

	runes := []rune(transcript)
	totalLen := len(runes)
	windows := segment.Windows(transcript, opts.WindowChars)
	transcriptNorm := canon.Text(transcript)

	var candidates []Unit
	for _, w := range windows {
		sentences := segment.Sentences(w.Text)
		var windowCands []Unit

		for _, s := range sentences {
			absStart := w.Start + s.Start
			absEnd := w.Start + s.End
			text := strings.TrimSpace(string(runes[absStart:absEnd]))

			wcount := canon.Words(text)
			if wcount < opts.MinWords || wcount > opts.MaxWords {
				continue
			}

			occ := occurrences(transcriptNorm, canon.Text(text))
			early := 1 - float64(absStart)/float64(totalLen)
			lenNorm := float64(min(wcount, opts.MaxWords)) / float64(opts.MaxWords)
			imperative := imperativeBoost(text)

			score := weightFrequency*float64(occ) +
				weightEarly*early +
				weightLength*lenNorm +
				weightImperative*float64(imperative)

			windowCands = append(windowCands, Unit{
				ID:     fmt.Sprintf("%d:%d-%d", w.Index, absStart, absEnd),
				Text:   text,
				Start:  absStart,
				End:    absEnd,
				Score:  score,
				Window: w.Index,
			})
		}

		if opts.PerWindowQuota > 0 && len(windowCands) > opts.PerWindowQuota {
			sort.Slice(windowCands, func(i, j int) bool {
				return rankLess(windowCands[i], windowCands[j])
			})
			windowCands = windowCands[:opts.PerWindowQuota]
		}
		candidates = append(candidates, windowCands...)
	}

	// Exact-normalized dedup, earliest start wins.
	byKey := make(map[string]Unit, len(candidates))
	for _, c := range candidates {
		key := canon.Text(c.Text)
		prev, ok := byKey[key]
		if !ok || c.Start < prev.Start {
			byKey[key] = c
		}
	}
	deduped := make([]Unit, 0, len(byKey))
	for _, u := range byKey {
		deduped = append(deduped, u)
	}
	sort.Slice(deduped, func(i, j int) bool { return positionLess(deduped[i], deduped[j]) })

	// Near-duplicate collapse against the most recently kept candidate only.
	// In (start, text) order near-duplicates from repeated phrasing sit next
	// to each other.
	collapsed := make([]Unit, 0, len(deduped))
	for _, u := range deduped {
		if n := len(collapsed); n > 0 &&
			canon.Jaccard3(u.Text, collapsed[n-1].Text) >= opts.JaccardThreshold {
			continue
		}
		collapsed = append(collapsed, u)
	}

	sort.Slice(collapsed, func(i, j int) bool { return rankLess(collapsed[i], collapsed[j]) })

	targetCount := opts.TargetCount
	if targetCount <= 0 {
		targetCount = DeriveTargetCount(totalLen)
	}
	if len(collapsed) > targetCount {
		collapsed = collapsed[:targetCount]
	}

	sort.Slice(collapsed, func(i, j int) bool { return positionLess(collapsed[i], collapsed[j]) })

	res := Result{Units: collapsed}
	if opts.IncludeMeta {
		meta := &Meta{
			ExtractorVersion: ExtractorVersion,
			WindowChars:      opts.WindowChars,
			MinWords:         opts.MinWords,
			MaxWords:         opts.MaxWords,
			JaccardThreshold: opts.JaccardThreshold,
		}
		if opts.PerWindowQuota > 0 {
			quota := opts.PerWindowQuota
			meta.PerWindowQuota = &quota
		}
		res.Meta = meta
	}
	return res
}

// DeriveTargetCount maps transcript length (in runes) to a unit budget:
// longer transcripts yield more units, bounded to [40, 90].
func DeriveTargetCount(transcriptLen int) int {
	n := (transcriptLen + targetCountDivisor/2) / targetCountDivisor
	if n < MinTargetCount {
		return MinTargetCount
	}
	if n > MaxTargetCount {
		return MaxTargetCount
	}
	return n
}
