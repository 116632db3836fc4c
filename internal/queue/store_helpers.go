package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, source_url, title, status, quality, aspect_ratio, publish_enabled, video_path, audio_path, duration_seconds, language, progress_stage, progress_percent, progress_message, error_message, failure_cause, correlation_id, cancel_requested, last_heartbeat, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		sourceURL        string
		title            sql.NullString
		statusStr        string
		quality          sql.NullString
		aspectRatio      sql.NullString
		publishEnabled   sql.NullInt64
		videoPath        sql.NullString
		audioPath        sql.NullString
		durationSeconds  sql.NullFloat64
		language         sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		errorMessage     sql.NullString
		failureCause     sql.NullString
		correlationID    sql.NullString
		cancelRequested  sql.NullInt64
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&title,
		&statusStr,
		&quality,
		&aspectRatio,
		&publishEnabled,
		&videoPath,
		&audioPath,
		&durationSeconds,
		&language,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&failureCause,
		&correlationID,
		&cancelRequested,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourceURL:       sourceURL,
		Title:           title.String,
		Status:          Status(statusStr),
		Quality:         quality.String,
		AspectRatio:     aspectRatio.String,
		VideoPath:       videoPath.String,
		AudioPath:       audioPath.String,
		DurationSeconds: durationSeconds.Float64,
		Language:        language.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		FailureCause:    failureCause.String,
		CorrelationID:   correlationID.String,
	}
	if publishEnabled.Valid {
		job.PublishEnabled = publishEnabled.Int64 != 0
	}
	if cancelRequested.Valid {
		job.CancelRequested = cancelRequested.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

const clipColumns = "id, job_id, segment_id, seq, title, description, hashtags, start_seconds, end_seconds, score, output_path, thumbnail_path, render_error, publish_state, published_url, publish_error, created_at, updated_at"

func scanClip(scanner interface{ Scan(dest ...any) error }) (*Clip, error) {
	var (
		id            int64
		jobID         int64
		segmentID     sql.NullInt64
		seq           int
		title         sql.NullString
		description   sql.NullString
		hashtags      sql.NullString
		startSeconds  float64
		endSeconds    float64
		score         sql.NullFloat64
		outputPath    sql.NullString
		thumbnailPath sql.NullString
		renderError   sql.NullString
		publishState  string
		publishedURL  sql.NullString
		publishError  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobID,
		&segmentID,
		&seq,
		&title,
		&description,
		&hashtags,
		&startSeconds,
		&endSeconds,
		&score,
		&outputPath,
		&thumbnailPath,
		&renderError,
		&publishState,
		&publishedURL,
		&publishError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	clip := &Clip{
		ID:            id,
		JobID:         jobID,
		SegmentID:     segmentID.Int64,
		Seq:           seq,
		Title:         title.String,
		Description:   description.String,
		Hashtags:      hashtags.String,
		StartSeconds:  startSeconds,
		EndSeconds:    endSeconds,
		Score:         score.Float64,
		OutputPath:    outputPath.String,
		ThumbnailPath: thumbnailPath.String,
		RenderError:   renderError.String,
		PublishState:  PublishState(publishState),
		PublishedURL:  publishedURL.String,
		PublishError:  publishError.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		clip.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		clip.UpdatedAt = updated
	}
	return clip, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
