// Package editing renders the selected segments into vertical clips. The
// selection over scored segments is recomputed here: the selector is pure and
// deterministic, so the scoring stage and this one always agree on the picks
// without persisting an intermediate plan.
package editing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/selection"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/services/gemini"
	"clipforge/internal/stage"
)

const stageName = "editing"

// Editor implements the clip rendering stage.
type Editor struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	ffmpeg   ffmpeg.Client
	metadata *gemini.Client
}

// New constructs the rendering stage from configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Editor {
	metadataOpts := []gemini.Option{
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
	}
	if cfg.Gemini.TimeoutSeconds > 0 {
		metadataOpts = append(metadataOpts, gemini.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
		}))
	}
	return &Editor{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, stageName),
		ffmpeg:   ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary())),
		metadata: gemini.NewClient(cfg.Gemini.APIKey, metadataOpts...),
	}
}

// Prepare verifies the source video still exists and the clips directory is writable.
func (e *Editor) Prepare(ctx context.Context, job *queue.Job) error {
	if job.VideoPath == "" {
		return services.Wrap(services.ErrRender, stageName, "prepare", "job has no source video", nil)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		return services.Wrap(services.ErrRender, stageName, "prepare", "source video missing", err)
	}
	if err := os.MkdirAll(e.cfg.Paths.ClipsDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "create clips directory", err)
	}
	return nil
}

// Execute renders each selected segment into a vertical clip with a thumbnail.
// A failed render is recorded on its clip and the rest continue; the job fails
// only when every clip fails.
func (e *Editor) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := e.store.SegmentsForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load segments: %w", err)
	}
	picks := selection.Select(candidatesFrom(segments), selectionOptions(e.cfg.Pipeline))
	if len(picks) == 0 {
		return services.Wrap(services.ErrNoViableSegments, stageName, "select", "no segments qualified for rendering", nil)
	}

	// A restarted job may carry clip rows from an interrupted run.
	if _, err := e.store.DeleteClipsForJob(ctx, job.ID); err != nil {
		return fmt.Errorf("clear previous clips: %w", err)
	}

	textByID := make(map[int64]string, len(segments))
	for _, segment := range segments {
		textByID[segment.ID] = segment.Text
	}

	useAPI := e.metadata.Configured()
	rendered := 0
	failed := 0
	var lastRenderErr error

	for i, pick := range picks {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, stageName, "render", "rendering interrupted", err)
		}

		seq := i + 1
		e.progress(ctx, job, fmt.Sprintf("Rendering clip %d/%d", seq, len(picks)),
			float64(i)/float64(len(picks))*100)

		meta := e.clipMetadata(ctx, job, useAPI, textByID[pick.ID])
		clip := &queue.Clip{
			JobID:        job.ID,
			SegmentID:    pick.ID,
			Seq:          seq,
			Title:        meta.Title,
			Description:  meta.Description,
			Hashtags:     strings.Join(meta.Tags, ","),
			StartSeconds: pick.Start,
			EndSeconds:   pick.End,
			Score:        pick.Score,
		}
		if err := e.store.InsertClip(ctx, clip); err != nil {
			return fmt.Errorf("insert clip: %w", err)
		}

		outputPath := filepath.Join(e.cfg.Paths.ClipsDir, fmt.Sprintf("clip_%d_%02d.mp4", job.ID, seq))
		renderErr := e.ffmpeg.RenderClip(ctx, job.VideoPath, outputPath, pick.Start, pick.End, ffmpeg.RenderOptions{
			AspectRatio:  aspectRatioFor(job, e.cfg),
			Preset:       e.cfg.Render.Preset,
			CRF:          e.cfg.Render.CRF,
			AudioBitrate: e.cfg.Render.AudioBitrate,
		})
		if renderErr != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrCancelled, stageName, "render", "rendering interrupted", ctx.Err())
			}
			failed++
			lastRenderErr = renderErr
			e.logger.WarnContext(ctx, "clip render failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.Int("seq", seq),
				logging.Error(renderErr))
			if err := e.store.UpdateClipRender(ctx, clip.ID, "", "", renderErr.Error()); err != nil {
				return fmt.Errorf("record clip render failure: %w", err)
			}
			continue
		}

		thumbnailPath := filepath.Join(e.cfg.Paths.ClipsDir, fmt.Sprintf("clip_%d_%02d_thumb.jpg", job.ID, seq))
		if err := e.ffmpeg.Thumbnail(ctx, outputPath, thumbnailPath); err != nil {
			// A missing thumbnail does not invalidate the clip.
			e.logger.WarnContext(ctx, "thumbnail failed",
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.Error(err))
			thumbnailPath = ""
		}
		if err := e.store.UpdateClipRender(ctx, clip.ID, outputPath, thumbnailPath, ""); err != nil {
			return fmt.Errorf("record clip render: %w", err)
		}
		rendered++
	}

	if rendered == 0 {
		return services.Wrap(services.ErrRender, stageName, "render",
			fmt.Sprintf("all %d clips failed to render", failed), lastRenderErr)
	}

	e.progress(ctx, job, fmt.Sprintf("Rendered %d clips", rendered), 100)
	e.logger.InfoContext(ctx, "clips rendered",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("rendered", rendered),
		logging.Int("failed", failed))
	return nil
}

// HealthCheck verifies the encoder binary is on PATH.
func (e *Editor) HealthCheck(ctx context.Context) stage.Health {
	binary := e.cfg.FFmpegBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("%s not found in PATH", binary))
	}
	return stage.Healthy(stageName)
}

func (e *Editor) clipMetadata(ctx context.Context, job *queue.Job, useAPI bool, text string) gemini.Metadata {
	if useAPI {
		meta, err := e.metadata.GenerateMetadata(ctx, text, job.Title)
		if err == nil {
			return meta
		}
		e.logger.WarnContext(ctx, "metadata generation failed, using fallback",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	return gemini.FallbackMetadata(text, job.Title)
}

func aspectRatioFor(job *queue.Job, cfg *config.Config) string {
	if job.AspectRatio != "" {
		return job.AspectRatio
	}
	return cfg.Pipeline.DefaultAspectRatio
}

func (e *Editor) progress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(stageName, message, percent)
	if err := e.store.UpdateProgress(ctx, job); err != nil {
		e.logger.WarnContext(ctx, "persist progress", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
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

var _ stage.Handler = (*Editor)(nil)
