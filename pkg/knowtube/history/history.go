// Package history records processing runs in a SQLite database: which
// videos were processed, when, with what outcome. The store retains the
// most recent 1000 records.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// maxRecords bounds the history size; older records are trimmed on insert.
const maxRecords = 1000

// Record is one processing run.
type Record struct {
	ID             string
	VideoID        string
	Title          string
	TranscriptHash string
	UnitCount      int
	Status         string
	Error          string
	OutputPath     string
	CreatedAt      time.Time
}

// Store persists run records.
type Store struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating if needed) the history database at path with WAL
// mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	title TEXT,
	transcript_hash TEXT,
	unit_count INTEGER DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT,
	output_path TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_video ON runs(video_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Add inserts a run record, assigning a ULID id and timestamp when absent,
// and trims the table to the retention bound. Returns the stored record.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	if rec.VideoID == "" {
		return rec, fmt.Errorf("history: %w: video id required", internalerr.ErrInvalidInput)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ID == "" {
		rec.ID = ulid.MustNew(ulid.Timestamp(rec.CreatedAt), s.entropy).String()
	}
	if rec.Status == "" {
		if rec.Error == "" {
			rec.Status = StatusCompleted
		} else {
			rec.Status = StatusFailed
		}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, video_id, title, transcript_hash, unit_count, status, error, output_path, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VideoID, rec.Title, rec.TranscriptHash, rec.UnitCount,
		rec.Status, rec.Error, rec.OutputPath, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return rec, fmt.Errorf("history: insert run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
DELETE FROM runs WHERE id NOT IN (
	SELECT id FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
)`, maxRecords)
	if err != nil {
		return rec, fmt.Errorf("history: trim runs: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > maxRecords {
		limit = maxRecords
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, video_id, title, transcript_hash, unit_count, status, error, output_path, created_at
FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByVideo returns all records for a video, most recent first.
func (s *Store) ByVideo(ctx context.Context, videoID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, video_id, title, transcript_hash, unit_count, status, error, output_path, created_at
FROM runs WHERE video_id = ? ORDER BY created_at DESC, id DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("history: query by video: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// LastCompleted returns the most recent completed run for a video.
func (s *Store) LastCompleted(ctx context.Context, videoID string) (Record, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, video_id, title, transcript_hash, unit_count, status, error, output_path, created_at
FROM runs WHERE video_id = ? AND status = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		videoID, StatusCompleted)
	if err != nil {
		return Record{}, false, fmt.Errorf("history: query last completed: %w", err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[0], true, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.VideoID, &rec.Title, &rec.TranscriptHash,
			&rec.UnitCount, &rec.Status, &rec.Error, &rec.OutputPath, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}
