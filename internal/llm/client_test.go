package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/knowtube/knowtube/pkg/knowtube/extract"
	"github.com/knowtube/knowtube/pkg/knowtube/normalize"
)

func TestCompleteSendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		if req["temperature"] != float64(0) {
			t.Errorf("temperature = %v, want 0", req["temperature"])
		}
		if req["system"] != "sys" {
			t.Errorf("system = %v", req["system"])
		}

		fmt.Fprint(w, `{"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}]}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"}
	got, err := c.Complete(context.Background(), "sys", "user msg")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("Complete = %q", got)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "k", Model: "m"}
	_, err := c.Complete(context.Background(), "", "hi")
	if err == nil || !strings.Contains(err.Error(), "rate_limit_error") {
		t.Errorf("error = %v, want rate limit message", err)
	}
}

func TestCompleteRequiresKeyAndModel(t *testing.T) {
	c := &Client{}
	if _, err := c.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("expected error without key and model")
	}
}

func TestCompleteJSONStripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "```json\n{\"value\": 7}\n```"
		resp := map[string]any{"content": []map[string]string{{"type": "text", "text": body}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "k", Model: "m"}
	var out struct {
		Value int `json:"value"`
	}
	if err := c.CompleteJSON(context.Background(), "", "q", &out); err != nil {
		t.Fatal(err)
	}
	if out.Value != 7 {
		t.Errorf("value = %d", out.Value)
	}
}

func TestCompleteJSONRejectsUnknownFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"content": []map[string]string{{"type": "text", "text": `{"value": 7, "extra": true}`}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "k", Model: "m"}
	var out struct {
		Value int `json:"value"`
	}
	if err := c.CompleteJSON(context.Background(), "", "q", &out); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := stripFences(c.in); got != c.want {
			t.Errorf("stripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizerPromptAndDecode(t *testing.T) {
	var gotUser promptPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System   string `json:"system"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(req.System, "technique") || !strings.Contains(req.System, "anti-pattern") {
			t.Error("system prompt should list taxonomy labels")
		}
		if err := json.Unmarshal([]byte(req.Messages[0].Content), &gotUser); err != nil {
			t.Fatalf("user message is not JSON: %v", err)
		}

		batch := normalize.Batch{
			VideoID: "vid1",
			Units: []normalize.NormalizedUnit{
				{ID: "0:0-10", Type: "technique", Name: "A name", Summary: "A summary.", Confidence: 0.8},
			},
		}
		text, _ := json.Marshal(batch)
		resp := map[string]any{"content": []map[string]string{{"type": "text", "text": string(text)}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	n := &Normalizer{
		Client:        &Client{BaseURL: srv.URL, APIKey: "k", Model: "test-model"},
		PromptVersion: "v2.1",
	}
	units := []extract.Unit{{ID: "0:0-10", Text: "Use table tests.", Start: 0, End: 10}}
	batch, err := n.Normalize(context.Background(), "vid1", units)
	if err != nil {
		t.Fatal(err)
	}
	if batch.VideoID != "vid1" || len(batch.Units) != 1 || batch.Units[0].Type != "technique" {
		t.Errorf("batch = %+v", batch)
	}

	if gotUser.VideoID != "vid1" || len(gotUser.Units) != 1 {
		t.Fatalf("prompt payload = %+v", gotUser)
	}
	if gotUser.Units[0].ID != "0:0-10" || gotUser.Units[0].Text != "Use table tests." {
		t.Errorf("prompt unit = %+v", gotUser.Units[0])
	}

	if n.Model() != "test-model" || n.TemplateVersion() != "v2.1" {
		t.Errorf("identity = %s / %s", n.Model(), n.TemplateVersion())
	}
}

func TestNormalizerClipsLongCandidates(t *testing.T) {
	var sentLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		var payload promptPayload
		json.Unmarshal([]byte(req.Messages[0].Content), &payload)
		sentLen = len([]rune(payload.Units[0].Text))

		resp := map[string]any{"content": []map[string]string{{"type": "text", "text": `{"video_id": "v", "units": []}`}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	n := &Normalizer{Client: &Client{BaseURL: srv.URL, APIKey: "k", Model: "m"}}
	long := strings.Repeat("x", 1000)
	if _, err := n.Normalize(context.Background(), "v", []extract.Unit{{ID: "a", Text: long}}); err != nil {
		t.Fatal(err)
	}
	if sentLen != maxCandidateRunes {
		t.Errorf("sent %d runes, want %d", sentLen, maxCandidateRunes)
	}
}
