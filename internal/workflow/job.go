package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// runJob drives one claimed job through its remaining stages until it reaches
// a terminal state or the daemon shuts down.
func (m *Manager) runJob(ctx context.Context, job *queue.Job) {
	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCorrelationID, job.CorrelationID))
	jobCtx := services.WithJobID(ctx, job.ID)

	for {
		handler, ok := m.handlers[job.Status]
		if !ok {
			m.failJob(jobCtx, logger, job, fmt.Errorf("no handler for status %s", job.Status))
			return
		}

		cancelled, err := m.cancelRequested(jobCtx, job.ID)
		if err != nil {
			logger.Warn("check cancel flag failed", logging.Error(err))
		}
		if cancelled {
			m.failCancelled(jobCtx, logger, job)
			return
		}

		if err := m.runStage(jobCtx, logger, handler, job); err != nil {
			if ctx.Err() != nil {
				logger.Debug("stage interrupted by shutdown", logging.String(logging.FieldStage, string(job.Status)))
				return
			}
			m.failJob(jobCtx, logger, job, err)
			return
		}

		next := nextStatus(job)
		if err := m.store.UpdateStatus(jobCtx, job.ID, next); err != nil {
			m.failJob(jobCtx, logger, job, err)
			return
		}
		job.Status = next

		if next == queue.StatusCompleted {
			m.finishJob(jobCtx, logger, job)
			return
		}
	}
}

func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, handler stage.Handler, job *queue.Job) error {
	stageCtx := services.WithStage(ctx, string(job.Status))
	cancelTimeout := func() {}
	if d := m.stageTimeout(job.Status); d > 0 {
		stageCtx, cancelTimeout = context.WithTimeout(stageCtx, d)
	}
	defer cancelTimeout()

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldStage, string(job.Status)))

	err := handler.Prepare(stageCtx, job)
	if err == nil {
		err = m.executeWithHeartbeat(stageCtx, handler, job)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTimeout, string(job.Status), "execute", "stage timed out", err)
		}
		return err
	}

	logger.Info("stage completed",
		logging.String(logging.FieldStage, string(job.Status)),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// nextStatus returns the status a job moves to after its current stage
// succeeds. Editing finishes the job directly when publishing is disabled.
func nextStatus(job *queue.Job) queue.Status {
	switch job.Status {
	case queue.StatusDownloading:
		return queue.StatusTranscribing
	case queue.StatusTranscribing:
		return queue.StatusAnalyzing
	case queue.StatusAnalyzing:
		return queue.StatusEditing
	case queue.StatusEditing:
		if job.PublishEnabled {
			return queue.StatusPublishing
		}
		return queue.StatusCompleted
	default:
		return queue.StatusCompleted
	}
}

// stageTimeout returns the wall-clock budget for subprocess-driven stages.
// API-driven stages rely on their clients' per-request timeouts instead.
func (m *Manager) stageTimeout(status queue.Status) time.Duration {
	switch status {
	case queue.StatusDownloading:
		return time.Duration(m.cfg.Download.TimeoutSeconds) * time.Second
	case queue.StatusTranscribing:
		return time.Duration(m.cfg.Transcribe.TimeoutSeconds) * time.Second
	case queue.StatusEditing:
		return time.Duration(m.cfg.Render.TimeoutSeconds) * time.Second
	default:
		return 0
	}
}

func (m *Manager) cancelRequested(ctx context.Context, jobID int64) (bool, error) {
	current, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}
	return current.CancelRequested, nil
}

func (m *Manager) failCancelled(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	job.SetFailed(queue.UserCancelReason, services.CauseLabel(services.ErrCancelled))
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("persist cancellation failed", logging.Error(err))
	}
	scratchDir := filepath.Join(m.cfg.Paths.ScratchDir, fmt.Sprintf("job_%d", job.ID))
	if err := fileutil.RemoveTree(scratchDir); err != nil {
		logger.Warn("remove scratch after cancel failed", logging.Error(err))
	}
	logger.Info("job cancelled", logging.String(logging.FieldStage, job.ProgressStage))
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, stageErr error) {
	details := services.Details(stageErr)
	message := details.Message
	if message == "" {
		message = stageErr.Error()
	}
	cause := services.CauseLabel(stageErr)

	job.SetFailed(message, cause)
	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("persist stage failure failed", logging.Error(err))
		}
	}
	m.setLastError(stageErr)

	attrs := []logging.Attr{
		logging.String(logging.FieldStage, details.Stage),
		logging.String(logging.FieldCause, cause),
		logging.String("error_message", message),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)
}

func (m *Manager) finishJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	job.SetProgress("Completed", "Completed", 100)
	job.LastHeartbeat = nil
	job.ErrorMessage = ""
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("persist completion failed", logging.Error(err))
	}
	if job.PublishEnabled {
		m.cleanupArtifacts(ctx, logger, job)
	}
	logger.Info("job completed", logging.Bool("published", job.PublishEnabled))
}

// cleanupArtifacts removes the source media, scratch files, and the local
// files of published clips. Everything is best effort: the job is already
// complete and a leftover file is a retention concern, not a failure.
func (m *Manager) cleanupArtifacts(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	mediaDir := filepath.Join(m.cfg.Paths.MediaDir, fmt.Sprintf("job_%d", job.ID))
	if err := fileutil.RemoveTree(mediaDir); err != nil {
		logger.Warn("remove source media failed", logging.String("path", mediaDir), logging.Error(err))
	}
	scratchDir := filepath.Join(m.cfg.Paths.ScratchDir, fmt.Sprintf("job_%d", job.ID))
	if err := fileutil.RemoveTree(scratchDir); err != nil {
		logger.Warn("remove scratch failed", logging.String("path", scratchDir), logging.Error(err))
	}

	clips, err := m.store.ClipsForJob(ctx, job.ID)
	if err != nil {
		logger.Warn("load clips for cleanup failed", logging.Error(err))
		return
	}
	for _, clip := range clips {
		if clip.PublishState != queue.PublishStatePublished {
			continue
		}
		if err := fileutil.RemoveFile(clip.OutputPath); err != nil {
			logger.Warn("remove published clip failed",
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.String("path", clip.OutputPath),
				logging.Error(err))
		}
		if err := fileutil.RemoveFile(clip.ThumbnailPath); err != nil {
			logger.Warn("remove published thumbnail failed",
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.Error(err))
		}
	}
}
