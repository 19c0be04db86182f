package normalize

import "fmt"

// Field limits for normalized units, in runes.
const (
	maxNameLen    = 80
	maxSummaryLen = 300
)

// NormalizedUnit is one categorized knowledge unit. Its ID echoes the input
// candidate id exactly.
type NormalizedUnit struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Batch is the normalization output for one video. Unit order matches the
// input candidate order.
type Batch struct {
	VideoID string           `json:"video_id"`
	Units   []NormalizedUnit `json:"units"`
}

// ValidateBatch checks every unit against the schema: type must be a
// taxonomy label, name 1..80 chars, summary 1..300 chars, confidence in
// [0,1]. Returns one message per violation; an empty slice means valid.
// Unknown JSON fields are rejected earlier, at the decode boundary.
func ValidateBatch(b *Batch) []string {
	var errs []string
	if b == nil {
		return []string{"batch is nil"}
	}
	for i, u := range b.Units {
		if u.ID == "" {
			errs = append(errs, fmt.Sprintf("units[%d]: id is empty", i))
		}
		if !ValidType(u.Type) {
			errs = append(errs, fmt.Sprintf("units[%d]: type %q is not in the taxonomy", i, u.Type))
		}
		if n := len([]rune(u.Name)); n == 0 || n > maxNameLen {
			errs = append(errs, fmt.Sprintf("units[%d]: name length %d outside [1,%d]", i, n, maxNameLen))
		}
		if n := len([]rune(u.Summary)); n == 0 || n > maxSummaryLen {
			errs = append(errs, fmt.Sprintf("units[%d]: summary length %d outside [1,%d]", i, n, maxSummaryLen))
		}
		if u.Confidence < 0 || u.Confidence > 1 {
			errs = append(errs, fmt.Sprintf("units[%d]: confidence %f outside [0,1]", i, u.Confidence))
		}
	}
	return errs
}
