// Package analyzing scores transcript segments for short-form potential and
// verifies a viable clip selection exists. Segments are scored with the
// Gemini API when credentials are configured and with keyword heuristics
// otherwise, so a job never stalls on a missing API key.
package analyzing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/selection"
	"clipforge/internal/services"
	"clipforge/internal/services/gemini"
	"clipforge/internal/stage"
)

const stageName = "analyzing"

// Analyzer implements the scoring stage.
type Analyzer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client *gemini.Client
}

// New constructs the scoring stage from configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stageName),
		client: newGeminiClient(cfg),
	}
}

func newGeminiClient(cfg *config.Config) *gemini.Client {
	opts := []gemini.Option{
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
	}
	if cfg.Gemini.TimeoutSeconds > 0 {
		opts = append(opts, gemini.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
		}))
	}
	return gemini.NewClient(cfg.Gemini.APIKey, opts...)
}

// Prepare is a no-op; the stage only needs the transcript already persisted.
func (a *Analyzer) Prepare(ctx context.Context, job *queue.Job) error {
	return nil
}

// Execute scores every segment, persists the scores, and fails the job when
// no segment survives selection.
func (a *Analyzer) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := a.store.SegmentsForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load segments: %w", err)
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrNoViableSegments, stageName, "load", "job has no transcript segments", nil)
	}

	useAPI := a.client.Configured()
	apiFailures := 0
	var lastAPIErr error

	for i := range segments {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, stageName, "score", "scoring interrupted", err)
		}

		analysis, err := a.scoreSegment(ctx, useAPI, segments[i].Text)
		if err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrCancelled, stageName, "score", "scoring interrupted", ctx.Err())
			}
			apiFailures++
			lastAPIErr = err
			a.logger.WarnContext(ctx, "segment scoring failed, using heuristic fallback",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Int("segment", segments[i].Seq),
				logging.Error(err))
			analysis = gemini.FallbackAnalysis(segments[i].Text)
		}

		segments[i].Engagement = analysis.EngagementScore
		segments[i].Emotion = analysis.EmotionScore
		segments[i].Viral = analysis.ViralPotential
		segments[i].Quotability = analysis.Quotability
		segments[i].Score = gemini.OverallScore(analysis)

		if (i+1)%10 == 0 || i == len(segments)-1 {
			percent := float64(i+1) / float64(len(segments)) * 90
			a.progress(ctx, job, fmt.Sprintf("Scored %d/%d segments", i+1, len(segments)), percent)
		}
	}

	if useAPI && apiFailures == len(segments) {
		return services.Wrap(services.ErrScoringUnavailable, stageName, "score", "scoring backend rejected every segment", lastAPIErr)
	}

	if err := a.store.ReplaceSegments(ctx, job.ID, segments); err != nil {
		return fmt.Errorf("persist scored segments: %w", err)
	}

	stored, err := a.store.SegmentsForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("reload scored segments: %w", err)
	}
	picks := selection.Select(candidatesFrom(stored), selectionOptions(a.cfg.Pipeline))
	if len(picks) == 0 {
		return services.Wrap(services.ErrNoViableSegments, stageName, "select",
			fmt.Sprintf("no segment scored at or above %.2f", a.cfg.Pipeline.MinScore), nil)
	}

	a.progress(ctx, job, fmt.Sprintf("Selected %d clip candidates", len(picks)), 100)
	a.logger.InfoContext(ctx, "analysis complete",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("segments", len(segments)),
		logging.Int("selected", len(picks)),
		logging.Bool("heuristic_only", !useAPI))
	return nil
}

// HealthCheck reports whether the scoring backend is configured. The
// heuristic fallback keeps the stage usable either way.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	if !a.client.Configured() {
		return stage.Health{Name: stageName, Ready: true, Detail: "no API key, heuristic scoring only"}
	}
	return stage.Healthy(stageName)
}

func (a *Analyzer) scoreSegment(ctx context.Context, useAPI bool, text string) (gemini.Analysis, error) {
	if !useAPI {
		return gemini.FallbackAnalysis(text), nil
	}
	return a.client.AnalyzeSegment(ctx, text)
}

func (a *Analyzer) progress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(stageName, message, percent)
	if err := a.store.UpdateProgress(ctx, job); err != nil {
		a.logger.WarnContext(ctx, "persist progress", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

// selectionOptions maps pipeline settings onto the selector's bounds.
func selectionOptions(p config.Pipeline) selection.Options {
	return selection.Options{
		MinScore:        p.MinScore,
		MinClipDuration: float64(p.MinClipSeconds),
		MaxClipDuration: float64(p.MaxClipSeconds),
		MaxClipCount:    p.MaxClipCount,
	}
}

func candidatesFrom(segments []queue.Segment) []selection.Scored {
	candidates := make([]selection.Scored, len(segments))
	for i, segment := range segments {
		candidates[i] = selection.Scored{
			ID:    segment.ID,
			Start: segment.StartSeconds,
			End:   segment.EndSeconds,
			Score: segment.Score,
		}
	}
	return candidates
}

var _ stage.Handler = (*Analyzer)(nil)
