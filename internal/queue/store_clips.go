package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertClip persists a rendered clip for a job.
func (s *Store) InsertClip(ctx context.Context, clip *Clip) error {
	if clip == nil {
		return errors.New("clip is nil")
	}
	if clip.JobID == 0 {
		return errors.New("clip job id is zero")
	}
	if clip.PublishState == "" {
		clip.PublishState = PublishStateNotPublished
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO clips (
            job_id, segment_id, seq, title, description, hashtags,
            start_seconds, end_seconds, score, output_path, thumbnail_path,
            render_error, publish_state, published_url, publish_error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.JobID,
		nullableInt64(clip.SegmentID),
		clip.Seq,
		nullableString(clip.Title),
		nullableString(clip.Description),
		nullableString(clip.Hashtags),
		clip.StartSeconds,
		clip.EndSeconds,
		clip.Score,
		nullableString(clip.OutputPath),
		nullableString(clip.ThumbnailPath),
		nullableString(clip.RenderError),
		clip.PublishState,
		nullableString(clip.PublishedURL),
		nullableString(clip.PublishError),
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	clip.ID = id
	clip.CreatedAt = now
	clip.UpdatedAt = now
	return nil
}

// GetClipByID fetches a clip by identifier.
func (s *Store) GetClipByID(ctx context.Context, id int64) (*Clip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// ClipsForJob returns a job's clips in stored order.
func (s *Store) ClipsForJob(ctx context.Context, jobID int64) ([]*Clip, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+clipColumns+` FROM clips WHERE job_id = ? ORDER BY seq`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// ClipsByPublishState returns clips matching a publish state, oldest first.
func (s *Store) ClipsByPublishState(ctx context.Context, state PublishState) ([]*Clip, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+clipColumns+` FROM clips WHERE publish_state = ? ORDER BY created_at`,
		state,
	)
	if err != nil {
		return nil, fmt.Errorf("query clips by publish state: %w", err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// UpdateClipPublishState records the publish outcome of a clip.
func (s *Store) UpdateClipPublishState(ctx context.Context, id int64, state PublishState, publishedURL, publishError string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips SET publish_state = ?, published_url = ?, publish_error = ?, updated_at = ? WHERE id = ?`,
		state,
		nullableString(publishedURL),
		nullableString(publishError),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update clip publish state: %w", err)
	}
	return nil
}

// UpdateClipRender records the render outcome of a clip. A successful render
// stores the output and thumbnail paths; a failed one stores the error.
func (s *Store) UpdateClipRender(ctx context.Context, id int64, outputPath, thumbnailPath, renderError string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips SET output_path = ?, thumbnail_path = ?, render_error = ?, updated_at = ? WHERE id = ?`,
		nullableString(outputPath),
		nullableString(thumbnailPath),
		nullableString(renderError),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update clip render: %w", err)
	}
	return nil
}

// DeleteClipsForJob removes all clip rows for a job.
func (s *Store) DeleteClipsForJob(ctx context.Context, jobID int64) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM clips WHERE job_id = ?`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete clips: %w", err)
	}
	return res.RowsAffected()
}

// AllClipPaths returns the output and thumbnail paths of every stored clip.
// Retention sweeps use this to distinguish tracked artifacts from orphans.
func (s *Store) AllClipPaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT output_path, thumbnail_path FROM clips`)
	if err != nil {
		return nil, fmt.Errorf("query clip paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var output, thumbnail sql.NullString
		if err := rows.Scan(&output, &thumbnail); err != nil {
			return nil, err
		}
		if output.String != "" {
			paths[output.String] = struct{}{}
		}
		if thumbnail.String != "" {
			paths[thumbnail.String] = struct{}{}
		}
	}
	return paths, rows.Err()
}
