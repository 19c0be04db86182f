// Package config loads application configuration from a YAML file with
// documented defaults. A missing file yields the defaults; an unparsable
// file is an error.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/knowtube/knowtube/pkg/knowtube/extract"
	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

// Config is the application configuration.
type Config struct {
	// OutputDir is the root of the generated knowledge base.
	OutputDir string `yaml:"output_dir"`
	// CachePath is the normalization cache file.
	CachePath string `yaml:"cache_path"`
	// HistoryPath is the SQLite run-history database.
	HistoryPath string `yaml:"history_path"`
	// ParallelWorkers sizes the transcript download pool.
	ParallelWorkers int `yaml:"parallel_workers"`

	Extract    Extract    `yaml:"extract"`
	Normalizer Normalizer `yaml:"normalizer"`
}

// Extract overrides extraction options. Zero fields fall back to the
// extractor defaults; TargetCount 0 derives the count from transcript
// length.
type Extract struct {
	WindowChars      int     `yaml:"window_chars"`
	TargetCount      int     `yaml:"target_count"`
	MinWords         int     `yaml:"min_words"`
	MaxWords         int     `yaml:"max_words"`
	JaccardThreshold float64 `yaml:"jaccard_threshold"`
	PerWindowQuota   int     `yaml:"per_window_quota"`
	IncludeMeta      bool    `yaml:"include_meta"`
}

// Options converts the overrides to extractor options.
func (e Extract) Options() extract.Options {
	return extract.Options{
		WindowChars:      e.WindowChars,
		TargetCount:      e.TargetCount,
		MinWords:         e.MinWords,
		MaxWords:         e.MaxWords,
		JaccardThreshold: e.JaccardThreshold,
		PerWindowQuota:   e.PerWindowQuota,
		IncludeMeta:      e.IncludeMeta,
	}
}

// Normalizer configures the LLM categorizer. APIKeyEnv names the environment
// variable holding the key, so config files never carry credentials.
type Normalizer struct {
	Model           string `yaml:"model"`
	TemplateVersion string `yaml:"template_version"`
	MaxRetries      int    `yaml:"max_retries"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	APIKeyEnv       string `yaml:"api_key_env"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		OutputDir:       "knowledge-base",
		CachePath:       ".cache/normalized.json",
		HistoryPath:     ".cache/history.db",
		ParallelWorkers: 4,
		Normalizer: Normalizer{
			Model:           "claude-haiku-4-5-20251001",
			TemplateVersion: "v2.1",
			MaxRetries:      1,
			TimeoutSeconds:  60,
			APIKeyEnv:       "ANTHROPIC_API_KEY",
		},
	}
}

// Load reads the config file at path. When the file does not exist the
// defaults are returned. Values present in the file override defaults;
// absent values keep them.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	return cfg, nil
}
