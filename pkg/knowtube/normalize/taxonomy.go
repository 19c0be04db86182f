// Package normalize categorizes fixed extraction candidates into a taxonomy
// while preserving their identity and cardinality. The external categorizer
// is not trusted: its output is checked against structural invariants and a
// schema, retried on failure, and replaced by a deterministic fallback when
// it keeps failing. Results are cached per (video, unit) under a
// configuration signature.
package normalize

// Taxonomy is the fixed set of knowledge-unit categories. Every boundary
// (schema validation, fallback construction, cache records, prompts) uses
// exactly these labels.
var Taxonomy = []string{
	"technique",
	"pattern",
	"use-case",
	"capability",
	"integration",
	"anti-pattern",
	"component",
	"troubleshooting",
	"configuration",
	"code-snippet",
}

var taxonomySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Taxonomy))
	for _, t := range Taxonomy {
		set[t] = struct{}{}
	}
	return set
}()

// ValidType reports whether t is one of the taxonomy labels.
func ValidType(t string) bool {
	_, ok := taxonomySet[t]
	return ok
}
