// knowtube processes one video end to end: extract knowledge unit
// candidates from its transcript, normalize them with the categorizer,
// write the knowledge base, and record the run in history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/knowtube/knowtube/internal/llm"
	"github.com/knowtube/knowtube/pkg/knowtube/config"
	"github.com/knowtube/knowtube/pkg/knowtube/export"
	"github.com/knowtube/knowtube/pkg/knowtube/extract"
	"github.com/knowtube/knowtube/pkg/knowtube/fetch"
	"github.com/knowtube/knowtube/pkg/knowtube/history"
	"github.com/knowtube/knowtube/pkg/knowtube/normalize"
)

func main() {
	var (
		configPath     = flag.String("config", "knowtube.yaml", "Config file path")
		videoID        = flag.String("video", "", "Video id (required)")
		transcriptPath = flag.String("transcript", "", "Transcript file; fetched from captions when absent")
		title          = flag.String("title", "", "Video title for the index")
		outDir         = flag.String("out", "", "Output directory (overrides config)")
	)
	flag.Parse()

	if *videoID == "" {
		log.Fatal("--video required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Normalizer.TimeoutSeconds)*time.Second)
	defer cancel()

	hist, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		log.Fatal(err)
	}
	defer hist.Close()

	if err := process(ctx, cfg, hist, *videoID, *transcriptPath, *title); err != nil {
		if _, herr := hist.Add(ctx, history.Record{VideoID: *videoID, Title: *title, Error: err.Error()}); herr != nil {
			log.Printf("record failure: %v", herr)
		}
		log.Fatal(err)
	}
}

func process(ctx context.Context, cfg config.Config, hist *history.Store, videoID, transcriptPath, title string) error {
	transcript, err := loadTranscript(ctx, videoID, transcriptPath)
	if err != nil {
		return err
	}

	doc, err := extract.Run(videoID, transcript, cfg.Extract.Options())
	if err != nil {
		return err
	}
	log.Printf("extracted %d candidate units from %d chars", len(doc.Units), len(transcript))

	batch, err := normalizeUnits(ctx, cfg, videoID, doc.Units)
	if err != nil {
		return err
	}

	writer := &export.Writer{Root: cfg.OutputDir}
	indexPath, err := writer.WriteVideo(export.VideoInfo{
		VideoID:        videoID,
		Title:          title,
		TranscriptHash: doc.TranscriptHash,
	}, doc.Units, batch)
	if err != nil {
		return err
	}
	log.Printf("wrote %d units, index %s", len(batch.Units), indexPath)

	_, err = hist.Add(ctx, history.Record{
		VideoID:        videoID,
		Title:          title,
		TranscriptHash: doc.TranscriptHash,
		UnitCount:      len(batch.Units),
		OutputPath:     indexPath,
	})
	return err
}

func loadTranscript(ctx context.Context, videoID, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}
		return string(data), nil
	}
	client := &fetch.Client{}
	return client.Transcript(ctx, videoID)
}

// normalizeUnits runs the cached normalization pass. Without an API key the
// deterministic fallback categorization is used directly.
func normalizeUnits(ctx context.Context, cfg config.Config, videoID string, units []extract.Unit) (*normalize.Batch, error) {
	apiKey := os.Getenv(cfg.Normalizer.APIKeyEnv)
	if apiKey == "" {
		log.Printf("%s not set, using fallback categorization", cfg.Normalizer.APIKeyEnv)
		return normalize.Fallback(videoID, units), nil
	}

	cat := &llm.Normalizer{
		Client: &llm.Client{
			APIKey: apiKey,
			Model:  cfg.Normalizer.Model,
		},
		PromptVersion: cfg.Normalizer.TemplateVersion,
	}
	cache := normalize.OpenCache(cfg.CachePath)
	runner := normalize.NewRunner(cat, cache, cfg.Normalizer.MaxRetries)
	return runner.Run(ctx, videoID, units)
}
