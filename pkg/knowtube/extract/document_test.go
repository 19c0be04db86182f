package extract

import (
	"errors"
	"testing"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

func TestTranscriptHash(t *testing.T) {
	// SHA-256 of "abc" is a fixed vector.
	got := TranscriptHash("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("TranscriptHash(\"abc\") = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("hash length = %d, want 64", len(got))
	}
}

func TestTranscriptHashSensitivity(t *testing.T) {
	if TranscriptHash("hello world") == TranscriptHash("hello world.") {
		t.Error("one-character change must change the hash")
	}
	if TranscriptHash("stable") != TranscriptHash("stable") {
		t.Error("hash must be stable for identical input")
	}
}

func TestRunRejectsBlankTranscript(t *testing.T) {
	for _, transcript := range []string{"", "   ", "\n\t "} {
		_, err := Run("vid1", transcript, Options{})
		if !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("Run(%q) error = %v, want ErrInvalidInput", transcript, err)
		}
	}
}

func TestRunDocument(t *testing.T) {
	transcript := "You should always pin your dependency versions. It prevents surprise upgrades from breaking builds."
	doc, err := Run("vid1", transcript, Options{TargetCount: 5, IncludeMeta: true})
	if err != nil {
		t.Fatal(err)
	}
	if doc.VideoID != "vid1" {
		t.Errorf("video_id = %q", doc.VideoID)
	}
	if doc.TranscriptHash != TranscriptHash(transcript) {
		t.Error("transcript hash mismatch")
	}
	if len(doc.Units) == 0 {
		t.Error("expected units")
	}
	if doc.Meta == nil {
		t.Error("expected meta")
	}
}
