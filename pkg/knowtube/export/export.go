// Package export writes normalized knowledge units to a markdown knowledge
// base on disk. Units are grouped into per-type directories, one file per
// unit, plus a YAML index per video tying the files back to their source.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/knowtube/knowtube/pkg/knowtube/extract"
	"github.com/knowtube/knowtube/pkg/knowtube/normalize"
)

// typeDirs maps taxonomy labels to knowledge-base directory names.
var typeDirs = map[string]string{
	"technique":       "techniques",
	"pattern":         "patterns",
	"use-case":        "use-cases",
	"capability":      "capabilities",
	"integration":     "integrations",
	"anti-pattern":    "antipatterns",
	"component":       "components",
	"troubleshooting": "troubleshooting",
	"configuration":   "configurations",
	"code-snippet":    "snippets",
}

// maxSlugLen bounds generated file names.
const maxSlugLen = 60

// VideoInfo carries the source metadata recorded in the index.
type VideoInfo struct {
	VideoID        string
	Title          string
	ChannelTitle   string
	TranscriptHash string
}

// indexEntry is one unit's line in the per-video YAML index.
type indexEntry struct {
	UnitID     string  `yaml:"unit_id"`
	Type       string  `yaml:"type"`
	Name       string  `yaml:"name"`
	Path       string  `yaml:"path"`
	Confidence float64 `yaml:"confidence"`
}

type videoIndex struct {
	VideoID        string         `yaml:"video_id"`
	Title          string         `yaml:"title,omitempty"`
	Channel        string         `yaml:"channel,omitempty"`
	TranscriptHash string         `yaml:"transcript_hash,omitempty"`
	UnitCount      int            `yaml:"unit_count"`
	TypeCounts     map[string]int `yaml:"type_counts,omitempty"`
	Units          []indexEntry   `yaml:"units"`
}

// Writer writes knowledge units under Root.
type Writer struct {
	Root string
}

// WriteVideo writes one markdown file per normalized unit and a YAML index
// for the video. Candidates supply the source text and offsets; they are
// matched to normalized units by id. Returns the index file path.
func (w *Writer) WriteVideo(info VideoInfo, candidates []extract.Unit, batch *normalize.Batch) (string, error) {
	if info.VideoID == "" {
		return "", fmt.Errorf("export: video id required")
	}

	byID := make(map[string]extract.Unit, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	index := videoIndex{
		VideoID:        info.VideoID,
		Title:          info.Title,
		Channel:        info.ChannelTitle,
		TranscriptHash: info.TranscriptHash,
		TypeCounts:     make(map[string]int),
	}

	// Duplicate names within a video get a numeric suffix.
	seen := make(map[string]int)
	for _, unit := range batch.Units {
		dir, ok := typeDirs[unit.Type]
		if !ok {
			return "", fmt.Errorf("export: unit %s: unknown type %q", unit.ID, unit.Type)
		}
		if err := os.MkdirAll(filepath.Join(w.Root, dir), 0o755); err != nil {
			return "", fmt.Errorf("export: create %s: %w", dir, err)
		}

		name := SanitizeFilename(unit.Name)
		key := dir + "/" + name
		seen[key]++
		if n := seen[key]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		rel := filepath.Join(dir, fmt.Sprintf("%s-%s.md", info.VideoID, name))
		body := renderUnit(info, unit, byID[unit.ID])
		if err := os.WriteFile(filepath.Join(w.Root, rel), []byte(body), 0o644); err != nil {
			return "", fmt.Errorf("export: write %s: %w", rel, err)
		}

		index.TypeCounts[unit.Type]++
		index.Units = append(index.Units, indexEntry{
			UnitID:     unit.ID,
			Type:       unit.Type,
			Name:       unit.Name,
			Path:       rel,
			Confidence: unit.Confidence,
		})
	}
	index.UnitCount = len(index.Units)

	indexDir := filepath.Join(w.Root, "index")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return "", fmt.Errorf("export: create index dir: %w", err)
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return "", fmt.Errorf("export: marshal index: %w", err)
	}
	indexPath := filepath.Join(indexDir, info.VideoID+".yaml")
	if err := os.WriteFile(indexPath, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write index: %w", err)
	}
	return indexPath, nil
}

func renderUnit(info VideoInfo, unit normalize.NormalizedUnit, src extract.Unit) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "video_id: %s\n", info.VideoID)
	fmt.Fprintf(&b, "unit_id: %s\n", unit.ID)
	fmt.Fprintf(&b, "type: %s\n", unit.Type)
	fmt.Fprintf(&b, "confidence: %.2f\n", unit.Confidence)
	if src.ID != "" {
		fmt.Fprintf(&b, "span: %d-%d\n", src.Start, src.End)
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", unit.Name)
	b.WriteString(unit.Summary)
	b.WriteString("\n")
	if src.Text != "" {
		b.WriteString("\n> ")
		b.WriteString(src.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// SanitizeFilename converts a unit name to a file name slug: lowercase,
// alphanumerics kept, everything else collapsed to single hyphens, bounded
// in length. Empty input slugs to "unit".
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "unit"
	}
	return slug
}
