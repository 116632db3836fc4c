// Package retention reclaims disk space from old jobs. A sweep removes
// completed jobs past the retention window together with their artifacts,
// deletes clip files no job row tracks anymore, and clears scratch
// directories whose jobs are gone.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Sweeper removes expired jobs and untracked artifacts.
type Sweeper struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// Result summarizes one sweep.
type Result struct {
	JobsRemoved    int
	FilesRemoved   int
	OrphansRemoved int
	ScratchRemoved int
}

// New constructs a sweeper.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "retention"),
	}
}

// Sweep runs a full retention pass. File removals are best effort; the sweep
// keeps going past individual failures and reports what it managed to remove.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result

	if s.cfg.Retention.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.Retention.Days)
		jobs, err := s.store.OldCompletedJobs(ctx, cutoff)
		if err != nil {
			return result, fmt.Errorf("list expired jobs: %w", err)
		}
		for _, job := range jobs {
			removed := s.removeJobArtifacts(ctx, job)
			result.FilesRemoved += removed
			if _, err := s.store.Remove(ctx, job.ID); err != nil {
				s.logger.Warn("remove expired job failed",
					logging.Int64(logging.FieldJobID, job.ID),
					logging.Error(err))
				continue
			}
			result.JobsRemoved++
		}
	}

	orphans, err := s.removeOrphanClips(ctx)
	if err != nil {
		return result, err
	}
	result.OrphansRemoved = orphans

	result.ScratchRemoved = s.removeDeadScratch(ctx)

	s.logger.Info("retention sweep finished",
		logging.Int("jobs_removed", result.JobsRemoved),
		logging.Int("files_removed", result.FilesRemoved),
		logging.Int("orphans_removed", result.OrphansRemoved),
		logging.Int("scratch_removed", result.ScratchRemoved))
	return result, nil
}

func (s *Sweeper) removeJobArtifacts(ctx context.Context, job *queue.Job) int {
	removed := 0
	clips, err := s.store.ClipsForJob(ctx, job.ID)
	if err != nil {
		s.logger.Warn("load clips for expired job failed",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	for _, clip := range clips {
		for _, path := range []string{clip.OutputPath, clip.ThumbnailPath} {
			if path == "" {
				continue
			}
			if err := fileutil.RemoveFile(path); err != nil {
				s.logger.Warn("remove clip file failed", logging.String("path", path), logging.Error(err))
				continue
			}
			removed++
		}
	}

	for _, dir := range []string{
		filepath.Join(s.cfg.Paths.MediaDir, fmt.Sprintf("job_%d", job.ID)),
		filepath.Join(s.cfg.Paths.ScratchDir, fmt.Sprintf("job_%d", job.ID)),
	} {
		if err := fileutil.RemoveTree(dir); err != nil {
			s.logger.Warn("remove job directory failed", logging.String("path", dir), logging.Error(err))
		}
	}
	return removed
}

// removeOrphanClips deletes files in the clips directory that no clip row
// references, which accumulate when rows are deleted out of band.
func (s *Sweeper) removeOrphanClips(ctx context.Context) (int, error) {
	tracked, err := s.store.AllClipPaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tracked clip paths: %w", err)
	}

	entries, err := os.ReadDir(s.cfg.Paths.ClipsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read clips directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.cfg.Paths.ClipsDir, entry.Name())
		if _, ok := tracked[path]; ok {
			continue
		}
		if err := fileutil.RemoveFile(path); err != nil {
			s.logger.Warn("remove orphan clip failed", logging.String("path", path), logging.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// removeDeadScratch clears per-job scratch directories whose job row is gone.
func (s *Sweeper) removeDeadScratch(ctx context.Context) int {
	entries, err := os.ReadDir(s.cfg.Paths.ScratchDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read scratch directory failed", logging.Error(err))
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "job_") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(entry.Name(), "job_"), 10, 64)
		if err != nil {
			continue
		}
		job, err := s.store.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("check scratch owner failed", logging.Int64(logging.FieldJobID, id), logging.Error(err))
			continue
		}
		if job != nil {
			continue
		}
		path := filepath.Join(s.cfg.Paths.ScratchDir, entry.Name())
		if err := fileutil.RemoveTree(path); err != nil {
			s.logger.Warn("remove dead scratch failed", logging.String("path", path), logging.Error(err))
			continue
		}
		removed++
	}
	return removed
}
