package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Record is a single cached categorization. NormalizerSig identifies the
// configuration (model, template version, taxonomy) it was computed under;
// a record with a stale signature is invalidated rather than served.
type Record struct {
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Summary       string  `json:"summary"`
	Confidence    float64 `json:"confidence"`
	NormalizerSig string  `json:"normalizer_sig"`
}

// Cache persists categorization records in a single flat JSON file keyed by
// "{video_id}:{unit_id}". The whole mapping loads at construction and is
// written back wholesale by Save; batching saves is the caller's
// responsibility.
//
// Cache is not safe for concurrent use, and concurrent processes writing the
// same file lose updates (last Save wins). Callers needing parallelism shard
// caches by video or serialize access.
type Cache struct {
	path string
	data map[string]Record
}

// OpenCache loads the cache at path. A missing or corrupt file yields an
// empty cache, not an error.
func OpenCache(path string) *Cache {
	c := &Cache{path: path, data: make(map[string]Record)}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var data map[string]Record
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return c
	}
	c.data = data
	return c
}

func cacheKey(videoID, unitID string) string {
	return videoID + ":" + unitID
}

// Get returns the cached record for (videoID, unitID).
func (c *Cache) Get(videoID, unitID string) (Record, bool) {
	rec, ok := c.data[cacheKey(videoID, unitID)]
	return rec, ok
}

// Has reports whether a record exists for (videoID, unitID).
func (c *Cache) Has(videoID, unitID string) bool {
	_, ok := c.data[cacheKey(videoID, unitID)]
	return ok
}

// Set stores a record for (videoID, unitID), overwriting any previous one.
func (c *Cache) Set(videoID, unitID string, rec Record) {
	c.data[cacheKey(videoID, unitID)] = rec
}

// InvalidateIfSigMismatch removes the record for (videoID, unitID) when its
// stored signature differs from currentSig. Reports whether a record was
// removed.
func (c *Cache) InvalidateIfSigMismatch(videoID, unitID, currentSig string) bool {
	key := cacheKey(videoID, unitID)
	rec, ok := c.data[key]
	if !ok || rec.NormalizerSig == currentSig {
		return false
	}
	delete(c.data, key)
	return true
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return len(c.data)
}

// Save writes the whole mapping to disk, creating parent directories as
// needed. Write failures propagate to the caller; persistence policy is
// owned by the surrounding system.
func (c *Cache) Save() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("normalize: create cache dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("normalize: encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("normalize: write cache: %w", err)
	}
	return nil
}

// ComputeSignature hashes the categorizer configuration. The taxonomy is
// sorted before hashing, so the signature is insensitive to input ordering
// but sensitive to any change in model, template version, or label set.
func ComputeSignature(model, templateVersion string, taxonomy []string) string {
	sorted := append([]string(nil), taxonomy...)
	sort.Strings(sorted)
	payload, _ := json.Marshal(struct {
		Model           string   `json:"model"`
		Taxonomy        []string `json:"taxonomy"`
		TemplateVersion string   `json:"template_version"`
	}{model, sorted, templateVersion})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
