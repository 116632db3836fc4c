package gemini

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func candidateResponse(t *testing.T, payload any) []byte {
	t.Helper()
	inner, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	outer := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": string(inner)}}}},
		},
	}
	encoded, err := json.Marshal(outer)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return encoded
}

func TestAnalyzeSegmentParsesAndClamps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-pro:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key-123" {
			t.Errorf("missing api key header")
		}
		w.Write(candidateResponse(t, map[string]any{
			"engagement_score": 1.4,
			"emotion_score":    -0.2,
			"viral_potential":  0.8,
			"quotability":      0.6,
			"emotions":         []string{"humor", "surprise"},
			"keywords":         []string{"reveal"},
			"reason":           "  strong hook  ",
		}))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	analysis, err := client.AnalyzeSegment(context.Background(), "an incredible reveal")
	if err != nil {
		t.Fatalf("AnalyzeSegment failed: %v", err)
	}
	if analysis.EngagementScore != 1.0 {
		t.Errorf("engagement not clamped: %v", analysis.EngagementScore)
	}
	if analysis.EmotionScore != 0 {
		t.Errorf("emotion not clamped: %v", analysis.EmotionScore)
	}
	if analysis.Reason != "strong hook" {
		t.Errorf("reason = %q", analysis.Reason)
	}
}

func TestAnalyzeSegmentRequiresKey(t *testing.T) {
	client := NewClient("")
	if _, err := client.AnalyzeSegment(context.Background(), "text"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestAnalyzeSegmentSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	_, err := client.AnalyzeSegment(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected http 429 error, got %v", err)
	}
}

func TestGenerateMetadataTruncatesFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tags := make([]string, 20)
		for i := range tags {
			tags[i] = "tag"
		}
		w.Write(candidateResponse(t, map[string]any{
			"title":       strings.Repeat("t", 150),
			"description": "watch this",
			"tags":        tags,
		}))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	meta, err := client.GenerateMetadata(context.Background(), "segment text", "Original Title")
	if err != nil {
		t.Fatalf("GenerateMetadata failed: %v", err)
	}
	if len(meta.Title) != 100 {
		t.Errorf("title length = %d", len(meta.Title))
	}
	if len(meta.Tags) != 15 {
		t.Errorf("tags = %d", len(meta.Tags))
	}
}

func TestOverallScoreWeights(t *testing.T) {
	analysis := Analysis{
		EngagementScore: 1,
		EmotionScore:    0.5,
		ViralPotential:  0.5,
		Quotability:     0,
	}
	want := 1*0.3 + 0.5*0.2 + 0.5*0.3
	if got := OverallScore(analysis); math.Abs(got-want) > 1e-9 {
		t.Errorf("OverallScore = %v, want %v", got, want)
	}
}

func TestFallbackAnalysisFloorsAndBonuses(t *testing.T) {
	analysis := FallbackAnalysis("plain text")
	if analysis.EngagementScore < 0.4 {
		t.Errorf("engagement below floor: %v", analysis.EngagementScore)
	}
	if analysis.ViralPotential < 0.3 {
		t.Errorf("viral below floor: %v", analysis.ViralPotential)
	}
	if len(analysis.Emotions) == 0 || analysis.Emotions[0] != "general" {
		t.Errorf("expected general emotion fallback, got %v", analysis.Emotions)
	}

	loaded := FallbackAnalysis("This shocking and hilarious moment is absolutely incredible, the crowd went insane when the secret was revealed and everyone said they loved it so much")
	if loaded.EngagementScore <= analysis.EngagementScore {
		t.Errorf("keyword-rich text should outscore plain text: %v <= %v", loaded.EngagementScore, analysis.EngagementScore)
	}
	if loaded.Emotions[0] != "humor" {
		t.Errorf("expected humor detected, got %v", loaded.Emotions)
	}
}

func TestFallbackAnalysisIsDeterministic(t *testing.T) {
	text := "an unbelievable story about trending music"
	a := FallbackAnalysis(text)
	b := FallbackAnalysis(text)
	if a.EngagementScore != b.EngagementScore || a.ViralPotential != b.ViralPotential {
		t.Error("fallback analysis not deterministic")
	}
}

func TestFallbackMetadata(t *testing.T) {
	meta := FallbackMetadata("This hilarious moment had everyone laughing at the concert", "Full Concert 2024")
	if !strings.HasPrefix(meta.Title, "Hilarious") {
		t.Errorf("title = %q", meta.Title)
	}
	if len(meta.Title) > 60 {
		t.Errorf("title too long: %d", len(meta.Title))
	}
	if !strings.Contains(meta.Description, "#Shorts") {
		t.Errorf("description missing hashtags: %q", meta.Description)
	}
	if len(meta.Tags) > 15 {
		t.Errorf("too many tags: %d", len(meta.Tags))
	}
	seen := map[string]struct{}{}
	for _, tag := range meta.Tags {
		if _, dup := seen[tag]; dup {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = struct{}{}
	}
}
