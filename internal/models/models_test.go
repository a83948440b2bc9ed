package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"title":      "A Post",
		"word_count": 1200,
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["title"] != "A Post" {
		t.Errorf("expected title=A Post, got %v", result["title"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"url": "https://example.com", "word_count": 10}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["url"] != "https://example.com" {
		t.Errorf("expected url, got %v", j["url"])
	}

	if j["word_count"].(float64) != 10 {
		t.Errorf("expected word_count=10, got %v", j["word_count"])
	}

	if err := j.Scan(nil); err != nil || j != nil {
		t.Errorf("expected nil JSONB after scanning NULL, got %v (%v)", j, err)
	}
}

func TestEpisodeStatus(t *testing.T) {
	statuses := []EpisodeStatus{
		EpisodeStatusQueued,
		EpisodeStatusScripting,
		EpisodeStatusScriptReady,
		EpisodeStatusSynthesizing,
		EpisodeStatusCompleted,
		EpisodeStatusFailed,
	}

	seen := map[EpisodeStatus]bool{}
	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
		if seen[status] {
			t.Errorf("duplicate status %q", status)
		}
		seen[status] = true
	}
}

func TestEpisodeHidesSourceText(t *testing.T) {
	text := "the whole article"
	ep := Episode{ID: uuid.New(), SourceType: SourceTypeText, SourceText: &text, Status: EpisodeStatusQueued}

	data, err := json.Marshal(ep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := out["source_text"]; ok {
		t.Errorf("source text must not be serialized")
	}
	if out["status"] != "queued" {
		t.Errorf("expected status=queued, got %v", out["status"])
	}
}

func TestEpisodeSummary(t *testing.T) {
	lines := 9
	ep := Episode{ID: uuid.New(), Style: "debate", TotalLines: &lines, Status: EpisodeStatusCompleted}
	s := ep.Summary()

	if s.ID != ep.ID || s.Style != "debate" || *s.TotalLines != 9 || s.Status != EpisodeStatusCompleted {
		t.Errorf("summary does not match episode: %+v", s)
	}
}
