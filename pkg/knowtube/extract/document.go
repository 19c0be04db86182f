package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

// Document is the orchestration-level extraction output: the selected units
// plus a content hash of the transcript they came from, for downstream
// determinism verification.
type Document struct {
	VideoID        string `json:"video_id"`
	TranscriptHash string `json:"transcript_hash"`
	Units          []Unit `json:"units"`
	Meta           *Meta  `json:"meta,omitempty"`
}

// TranscriptHash returns the SHA-256 hex digest of the transcript's UTF-8
// bytes.
func TranscriptHash(transcript string) string {
	sum := sha256.Sum256([]byte(transcript))
	return hex.EncodeToString(sum[:])
}

// Run extracts units from a transcript and wraps them in a Document.
// Unlike the inner Extract, which tolerates empty input, Run rejects
// empty or whitespace-only transcripts with ErrInvalidInput.
func Run(videoID, transcript string, opts Options) (*Document, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("extract: %w: transcript is empty", internalerr.ErrInvalidInput)
	}
	res := Extract(transcript, opts)
	return &Document{
		VideoID:        videoID,
		TranscriptHash: TranscriptHash(transcript),
		Units:          res.Units,
		Meta:           res.Meta,
	}, nil
}
