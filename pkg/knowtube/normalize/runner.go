package normalize

import (
	"context"
	"fmt"

	"github.com/knowtube/knowtube/pkg/knowtube/extract"
	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

// Fallback construction constants. The fallback batch depends only on
// candidate text, so repeated categorizer failures never introduce
// nondeterminism into downstream caching.
const (
	FallbackType       = "component"
	FallbackName       = "(unclear)"
	FallbackConfidence = 0.3

	fallbackSummaryLimit = 280
)

// Categorizer assigns a taxonomy type, name, summary and confidence to each
// candidate. It must echo candidate ids but is not assumed deterministic in
// content, and it may fail or time out.
type Categorizer interface {
	Normalize(ctx context.Context, videoID string, candidates []extract.Unit) (*Batch, error)
	// Model and TemplateVersion identify the configuration for cache
	// signature purposes.
	Model() string
	TemplateVersion() string
}

// Runner orchestrates categorization: cache lookup with signature
// invalidation, bounded immediate retry of the categorizer against
// invariant and schema checks, deterministic fallback, and cache
// write-back. Run never fails because of categorizer misbehavior; it
// always returns a schema-valid batch, possibly of degraded quality.
//
// A Runner (and its Cache) is not safe for concurrent use; see Cache.
type Runner struct {
	categorizer Categorizer
	cache       *Cache
	maxRetries  int
	sig         string
}

// NewRunner wires a categorizer to a cache. maxRetries is the number of
// retries after the first attempt; negative values mean no retry. The retry
// loop does not sleep: its purpose is schema and invariant recovery, not
// rate-limit recovery.
func NewRunner(cat Categorizer, cache *Cache, maxRetries int) *Runner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Runner{
		categorizer: cat,
		cache:       cache,
		maxRetries:  maxRetries,
		sig:         ComputeSignature(cat.Model(), cat.TemplateVersion(), Taxonomy),
	}
}

// Signature returns the configuration signature cache records are written
// under.
func (r *Runner) Signature() string {
	return r.sig
}

// Run categorizes candidates for a video. Candidates whose cached records
// carry a stale signature are invalidated first; if every candidate then has
// a cache hit the result is reconstructed with zero external calls.
// Otherwise the categorizer runs with bounded retry and the accepted (or
// fallback) batch is written back to the cache and flushed.
//
// The returned batch preserves candidate ids, order, and count exactly. The
// only error Run surfaces is a cache persistence failure.
func (r *Runner) Run(ctx context.Context, videoID string, candidates []extract.Unit) (*Batch, error) {
	for _, c := range candidates {
		r.cache.InvalidateIfSigMismatch(videoID, c.ID, r.sig)
	}

	allCached := true
	for _, c := range candidates {
		if !r.cache.Has(videoID, c.ID) {
			allCached = false
			break
		}
	}
	if allCached {
		return r.fromCache(videoID, candidates)
	}

	batch := r.normalizeWithRetry(ctx, videoID, candidates)

	for _, u := range batch.Units {
		r.cache.Set(videoID, u.ID, Record{
			Type:          u.Type,
			Name:          u.Name,
			Summary:       u.Summary,
			Confidence:    u.Confidence,
			NormalizerSig: r.sig,
		})
	}
	if err := r.cache.Save(); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return batch, nil
}

func (r *Runner) fromCache(videoID string, candidates []extract.Unit) (*Batch, error) {
	units := make([]NormalizedUnit, 0, len(candidates))
	for _, c := range candidates {
		rec, ok := r.cache.Get(videoID, c.ID)
		if !ok {
			return nil, fmt.Errorf("normalize: %w: cache record for unit %s", internalerr.ErrNotFound, c.ID)
		}
		units = append(units, NormalizedUnit{
			ID:         c.ID,
			Type:       rec.Type,
			Name:       rec.Name,
			Summary:    rec.Summary,
			Confidence: rec.Confidence,
		})
	}
	return &Batch{VideoID: videoID, Units: units}, nil
}

// normalizeWithRetry attempts the categorizer up to maxRetries+1 times.
// The first attempt that returns without error, preserves the candidate
// id sequence, and passes schema validation is accepted immediately.
// When every attempt fails, the deterministic fallback is returned.
func (r *Runner) normalizeWithRetry(ctx context.Context, videoID string, candidates []extract.Unit) *Batch {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		batch, err := r.categorizer.Normalize(ctx, videoID, candidates)
		if err != nil {
			continue
		}
		if !invariantsHold(batch, candidates) {
			continue
		}
		if errs := ValidateBatch(batch); len(errs) > 0 {
			continue
		}
		return batch
	}
	return Fallback(videoID, candidates)
}

// invariantsHold checks the structural contract: one output unit per input
// candidate, ids echoed exactly, in the same order.
func invariantsHold(batch *Batch, candidates []extract.Unit) bool {
	if batch == nil || len(batch.Units) != len(candidates) {
		return false
	}
	for i, u := range batch.Units {
		if u.ID != candidates[i].ID {
			return false
		}
	}
	return true
}

// Fallback builds the deterministic degraded batch: one entry per candidate
// in the original order, typed as a component with an "(unclear)" name, the
// candidate text (truncated) as summary, and low confidence. Indistinguishable
// at the schema level from a genuine low-confidence categorization; consumers
// that care inspect name and confidence.
func Fallback(videoID string, candidates []extract.Unit) *Batch {
	units := make([]NormalizedUnit, 0, len(candidates))
	for _, c := range candidates {
		units = append(units, NormalizedUnit{
			ID:         c.ID,
			Type:       FallbackType,
			Name:       FallbackName,
			Summary:    truncateRunes(c.Text, fallbackSummaryLimit),
			Confidence: FallbackConfidence,
		})
	}
	return &Batch{VideoID: videoID, Units: units}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
