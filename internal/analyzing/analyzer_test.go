package analyzing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func seedSegments(t *testing.T, store *queue.Store, jobID int64, texts ...string) {
	t.Helper()
	segments := make([]queue.Segment, len(texts))
	for i, text := range texts {
		segments[i] = queue.Segment{
			JobID:        jobID,
			Seq:          i,
			StartSeconds: float64(i * 30),
			EndSeconds:   float64(i*30 + 30),
			Text:         text,
		}
	}
	if err := store.ReplaceSegments(context.Background(), jobID, segments); err != nil {
		t.Fatalf("seed segments: %v", err)
	}
}

func newHeuristicAnalyzer(t *testing.T) (*Analyzer, *queue.Store, *queue.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Gemini.APIKey = ""
	cfg.Pipeline.MinScore = 0.1
	cfg.Pipeline.MinClipSeconds = 10
	cfg.Pipeline.MaxClipSeconds = 60
	cfg.Pipeline.MaxClipCount = 3
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "https://example.com/watch?v=abc")
	return New(store, cfg, logging.NewNop()), store, job
}

func TestExecuteScoresWithHeuristicsWhenUnconfigured(t *testing.T) {
	analyzer, store, job := newHeuristicAnalyzer(t)
	seedSegments(t, store, job.ID,
		"you will love this amazing and hilarious moment he said it was incredible and everyone got excited wanting to share the viral clip with all their friends",
		"a quiet stretch with nothing remarkable happening at all",
	)

	if err := analyzer.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	segments, err := store.SegmentsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load segments: %v", err)
	}
	for _, segment := range segments {
		if segment.Score <= 0 {
			t.Fatalf("segment %d has no score", segment.Seq)
		}
	}
	if segments[0].Score <= segments[1].Score {
		t.Fatalf("expected keyword-rich segment to outrank: %v vs %v", segments[0].Score, segments[1].Score)
	}
}

func TestExecuteFailsWhenNothingSurvivesSelection(t *testing.T) {
	analyzer, store, job := newHeuristicAnalyzer(t)
	analyzer.cfg.Pipeline.MinScore = 0.99
	seedSegments(t, store, job.ID, "plain content with no hooks")

	err := analyzer.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrNoViableSegments) {
		t.Fatalf("expected no viable segments, got %v", err)
	}
	if services.CauseLabel(err) != "NoViableSegments" {
		t.Fatalf("cause label = %q", services.CauseLabel(err))
	}
}

func TestExecuteFailsWithoutSegments(t *testing.T) {
	analyzer, _, job := newHeuristicAnalyzer(t)

	err := analyzer.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrNoViableSegments) {
		t.Fatalf("expected no viable segments, got %v", err)
	}
}

func TestExecuteUsesAPIScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := `{"engagement_score":0.9,"emotion_score":0.8,"viral_potential":0.9,"quotability":0.7,"emotions":["humor"],"keywords":["test"],"reason":"strong hook"}`
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Gemini.APIKey = "key"
	cfg.Gemini.BaseURL = server.URL
	cfg.Pipeline.MinScore = 0.5
	cfg.Pipeline.MinClipSeconds = 10
	cfg.Pipeline.MaxClipSeconds = 60
	cfg.Pipeline.MaxClipCount = 3
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "https://example.com/watch?v=abc")
	analyzer := New(store, cfg, logging.NewNop())
	seedSegments(t, store, job.ID, "some segment text worth scoring")

	if err := analyzer.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	segments, err := store.SegmentsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load segments: %v", err)
	}
	want := 0.9*0.3 + 0.8*0.2 + 0.9*0.3 + 0.7*0.2
	if diff := segments[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("score = %v, want %v", segments[0].Score, want)
	}
}

func TestExecuteFallsBackPerSegmentOnAPIError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}
		payload := `{"engagement_score":0.9,"emotion_score":0.8,"viral_potential":0.9,"quotability":0.7}`
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Gemini.APIKey = "key"
	cfg.Gemini.BaseURL = server.URL
	cfg.Pipeline.MinScore = 0.1
	cfg.Pipeline.MinClipSeconds = 10
	cfg.Pipeline.MaxClipSeconds = 60
	cfg.Pipeline.MaxClipCount = 3
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "https://example.com/watch?v=abc")
	analyzer := New(store, cfg, logging.NewNop())
	seedSegments(t, store, job.ID, "first segment text", "second segment text")

	if err := analyzer.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	segments, err := store.SegmentsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load segments: %v", err)
	}
	// First segment fell back to heuristic floors, second came from the API.
	if segments[0].Engagement != 0.4 {
		t.Fatalf("fallback engagement = %v", segments[0].Engagement)
	}
	if segments[1].Engagement != 0.9 {
		t.Fatalf("api engagement = %v", segments[1].Engagement)
	}
}

func TestExecuteScoringUnavailableWhenEveryCallFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Gemini.APIKey = "bad-key"
	cfg.Gemini.BaseURL = server.URL
	cfg.Pipeline.MinScore = 0.1
	cfg.Pipeline.MinClipSeconds = 10
	cfg.Pipeline.MaxClipSeconds = 60
	cfg.Pipeline.MaxClipCount = 3
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "https://example.com/watch?v=abc")
	analyzer := New(store, cfg, logging.NewNop())
	seedSegments(t, store, job.ID, "one", "two")

	err := analyzer.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrScoringUnavailable) {
		t.Fatalf("expected scoring unavailable, got %v", err)
	}
	if services.CauseLabel(err) != "ScoringUnavailable" {
		t.Fatalf("cause label = %q", services.CauseLabel(err))
	}
}

func TestSelectionOptionsMapping(t *testing.T) {
	analyzer, _, _ := newHeuristicAnalyzer(t)
	opts := selectionOptions(analyzer.cfg.Pipeline)

	if opts.MinScore != 0.1 || opts.MinClipDuration != 10 || opts.MaxClipDuration != 60 || opts.MaxClipCount != 3 {
		t.Fatalf("options = %+v", opts)
	}
}
