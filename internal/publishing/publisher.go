// Package publishing uploads rendered clips to the configured destination.
// Upload failures are recorded per clip and never fail the job: a job whose
// clips all failed to publish still completes with its clips on disk.
package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/youtube"
	"clipforge/internal/stage"
)

const stageName = "publishing"

// Publisher implements the upload stage.
type Publisher struct {
	store      *queue.Store
	cfg        *config.Config
	logger     *slog.Logger
	client     youtube.Client
	configured bool
}

// New constructs the upload stage from configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Publisher {
	opts := []youtube.Option{youtube.WithUploadURL(cfg.Publish.UploadURL)}
	if cfg.Publish.TimeoutSeconds > 0 {
		opts = append(opts, youtube.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Publish.TimeoutSeconds) * time.Second,
		}))
	}
	api := youtube.NewAPI(cfg.Publish.Token, opts...)
	return &Publisher{
		store:      store,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, stageName),
		client:     api,
		configured: api.Configured(),
	}
}

// Prepare is a no-op; missing credentials are handled per clip in Execute.
func (p *Publisher) Prepare(ctx context.Context, job *queue.Job) error {
	return nil
}

// Execute uploads every successfully rendered clip and records the outcome on
// each. It returns an error only when interrupted, never for upload failures.
func (p *Publisher) Execute(ctx context.Context, job *queue.Job) error {
	if !job.PublishEnabled {
		return nil
	}

	clips, err := p.store.ClipsForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load clips: %w", err)
	}

	published := 0
	failed := 0
	for i, clip := range clips {
		if clip.OutputPath == "" || clip.RenderError != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, stageName, "upload", "publishing interrupted", err)
		}

		p.progress(ctx, job, fmt.Sprintf("Publishing clip %d/%d", i+1, len(clips)),
			float64(i)/float64(len(clips))*100)

		if !p.configured {
			failed++
			if err := p.store.UpdateClipPublishState(ctx, clip.ID, queue.PublishStateFailed, "", "publish credentials not configured"); err != nil {
				return fmt.Errorf("record publish failure: %w", err)
			}
			continue
		}

		url, uploadErr := p.client.Upload(ctx, youtube.UploadRequest{
			FilePath:      clip.OutputPath,
			Title:         clip.Title,
			Description:   clip.Description,
			Tags:          splitTags(clip.Hashtags),
			CategoryID:    p.cfg.Publish.CategoryID,
			PrivacyStatus: p.cfg.Publish.PrivacyStatus,
		})
		if uploadErr != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrCancelled, stageName, "upload", "publishing interrupted", ctx.Err())
			}
			failed++
			p.logger.WarnContext(ctx, "clip upload failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.Error(uploadErr))
			if err := p.store.UpdateClipPublishState(ctx, clip.ID, queue.PublishStateFailed, "", uploadErr.Error()); err != nil {
				return fmt.Errorf("record publish failure: %w", err)
			}
			continue
		}

		published++
		if err := p.store.UpdateClipPublishState(ctx, clip.ID, queue.PublishStatePublished, url, ""); err != nil {
			return fmt.Errorf("record publish result: %w", err)
		}
		p.logger.InfoContext(ctx, "clip published",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String("url", url))
	}

	p.progress(ctx, job, fmt.Sprintf("Published %d clips, %d failed", published, failed), 100)
	return nil
}

// HealthCheck reports whether publish credentials are configured.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if !p.configured {
		return stage.Unhealthy(stageName, "publish token not configured")
	}
	return stage.Healthy(stageName)
}

func (p *Publisher) progress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(stageName, message, percent)
	if err := p.store.UpdateProgress(ctx, job); err != nil {
		p.logger.WarnContext(ctx, "persist progress", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func splitTags(hashtags string) []string {
	if hashtags == "" {
		return nil
	}
	parts := strings.Split(hashtags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

var _ stage.Handler = (*Publisher)(nil)
