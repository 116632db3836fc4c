package queue

import (
	"context"
	"fmt"
	"time"
)

// ClaimExecution atomically moves a pending job into the downloading stage so
// only one worker processes it. ErrAlreadyClaimed is returned when the job is
// no longer pending, ErrNotFound when it does not exist.
func (s *Store) ClaimExecution(ctx context.Context, id int64) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusDownloading,
		now,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		job, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: job %d is %s", ErrAlreadyClaimed, id, job.Status)
	}
	return s.GetByID(ctx, id)
}

// ReleaseExecution clears the heartbeat when a worker finishes with a job.
func (s *Store) ReleaseExecution(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns in-flight jobs to pending when their
// heartbeats expired, so another worker can pick them up from the start.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := make([]any, 0, len(allStatuses))
	args = append(args, StatusPending, now)
	placeholders := makePlaceholders(len(processingStatuses))
	for _, status := range allStatuses {
		if IsProcessingStatus(status) {
			args = append(args, status)
		}
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+placeholders+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns all in-flight jobs to pending. Called on daemon
// startup so jobs orphaned by a crash are retried from the beginning.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := make([]any, 0, len(allStatuses))
	args = append(args, StatusPending, now)
	placeholders := makePlaceholders(len(processingStatuses))
	for _, status := range allStatuses {
		if IsProcessingStatus(status) {
			args = append(args, status)
		}
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, progress_stage = 'Reset from stuck processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}
