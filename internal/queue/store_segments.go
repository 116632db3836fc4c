package queue

import (
	"context"
	"errors"
	"fmt"
)

// ReplaceSegments swaps the stored transcript segments for a job. Rerunning
// analysis must not accumulate duplicates, so the old rows are deleted in the
// same transaction.
func (s *Store) ReplaceSegments(ctx context.Context, jobID int64, segments []Segment) error {
	if jobID == 0 {
		return errors.New("job id is zero")
	}
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin segments tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `DELETE FROM transcript_segments WHERE job_id = ?`, jobID); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}

		for i, segment := range segments {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO transcript_segments (
                    job_id, seq, start_seconds, end_seconds, text,
                    engagement, emotion, viral, quotability, score
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				jobID,
				i,
				segment.StartSeconds,
				segment.EndSeconds,
				nullableString(segment.Text),
				segment.Engagement,
				segment.Emotion,
				segment.Viral,
				segment.Quotability,
				segment.Score,
			); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit segments: %w", err)
		}
		return nil
	})
}

// SegmentsForJob returns a job's transcript segments in stored order.
func (s *Store) SegmentsForJob(ctx context.Context, jobID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_id, seq, start_seconds, end_seconds, text,
                engagement, emotion, viral, quotability, score
         FROM transcript_segments WHERE job_id = ? ORDER BY seq`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var (
			segment Segment
			text    []byte
		)
		if err := rows.Scan(
			&segment.ID,
			&segment.JobID,
			&segment.Seq,
			&segment.StartSeconds,
			&segment.EndSeconds,
			&text,
			&segment.Engagement,
			&segment.Emotion,
			&segment.Viral,
			&segment.Quotability,
			&segment.Score,
		); err != nil {
			return nil, err
		}
		segment.Text = string(text)
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}
