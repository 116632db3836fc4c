// Package downloading acquires the source video for a job. It probes the
// source for metadata first so the job carries a title and duration before
// the download starts, then fetches the video into the media directory.
package downloading

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/ytdlp"
	"clipforge/internal/stage"
)

const stageName = "downloading"

// Downloader implements the acquisition stage.
type Downloader struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client ytdlp.Client
}

// New constructs the acquisition stage from configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Downloader {
	opts := []ytdlp.Option{ytdlp.WithBinary(cfg.YtdlpBinary())}
	if cfg.Download.CookiesFile != "" {
		opts = append(opts, ytdlp.WithCookiesFile(cfg.Download.CookiesFile))
	}
	return &Downloader{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stageName),
		client: ytdlp.NewCLI(opts...),
	}
}

// Prepare rejects sources the downloader cannot fetch and ensures the media
// directory exists. Validation failures are terminal for the job: retrying a
// malformed URL cannot succeed.
func (d *Downloader) Prepare(ctx context.Context, job *queue.Job) error {
	if err := ytdlp.ValidateSourceURL(job.SourceURL); err != nil {
		return services.Wrap(services.ErrUnsupportedSource, stageName, "validate", "source url rejected", err)
	}
	if err := os.MkdirAll(d.cfg.Paths.MediaDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "create media directory", err)
	}
	return nil
}

// Execute probes the source and downloads it into a per-job media directory.
func (d *Downloader) Execute(ctx context.Context, job *queue.Job) error {
	d.progress(ctx, job, "Fetching source metadata", 5)

	meta, err := d.client.Probe(ctx, job.SourceURL)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "probe", "fetch source metadata", err)
	}
	if job.Title == "" {
		job.Title = meta.Title
	}
	if meta.DurationSeconds > 0 {
		job.DurationSeconds = meta.DurationSeconds
	}

	destDir := filepath.Join(d.cfg.Paths.MediaDir, fmt.Sprintf("job_%d", job.ID))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "create job media directory", err)
	}

	d.progress(ctx, job, "Downloading source video", 20)
	videoPath, err := d.client.Download(ctx, job.SourceURL, job.Quality, destDir)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "download", "download source video", err)
	}
	job.VideoPath = videoPath

	if err := d.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist downloaded job: %w", err)
	}
	d.progress(ctx, job, "Download complete", 100)

	d.logger.InfoContext(ctx, "source acquired",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("title", job.Title),
		logging.Float64("duration_seconds", job.DurationSeconds),
		logging.String("video_path", videoPath))
	return nil
}

// HealthCheck verifies the downloader binary is on PATH.
func (d *Downloader) HealthCheck(ctx context.Context) stage.Health {
	binary := d.cfg.YtdlpBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("%s not found in PATH", binary))
	}
	return stage.Healthy(stageName)
}

func (d *Downloader) progress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(stageName, message, percent)
	if err := d.store.UpdateProgress(ctx, job); err != nil {
		d.logger.WarnContext(ctx, "persist progress", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

var _ stage.Handler = (*Downloader)(nil)
