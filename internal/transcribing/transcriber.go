// Package transcribing turns a job's source video into ordered transcript
// segments. It probes the container, extracts the preferred audio stream as
// mono 16 kHz WAV, and runs the speech-to-text tool over it.
package transcribing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/abadojack/whatlanggo"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/audio"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/services/whisper"
	"clipforge/internal/stage"
)

const stageName = "transcribing"

// Transcriber implements the transcription stage.
type Transcriber struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	ffmpeg  ffmpeg.Client
	whisper whisper.Client
	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New constructs the transcription stage from configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Transcriber {
	whisperOpts := []whisper.Option{whisper.WithBinary(cfg.WhisperBinary())}
	if cfg.Transcribe.Model != "" {
		whisperOpts = append(whisperOpts, whisper.WithModel(cfg.Transcribe.Model))
	}
	return &Transcriber{
		store:   store,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, stageName),
		ffmpeg:  ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary())),
		whisper: whisper.NewCLI(whisperOpts...),
		inspect: ffprobe.Inspect,
	}
}

// Prepare verifies the downloaded source exists and the scratch area is writable.
func (t *Transcriber) Prepare(ctx context.Context, job *queue.Job) error {
	if job.VideoPath == "" {
		return services.Wrap(services.ErrTranscript, stageName, "prepare", "job has no source video", nil)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		return services.Wrap(services.ErrTranscript, stageName, "prepare", "source video missing", err)
	}
	if err := os.MkdirAll(t.cfg.Paths.ScratchDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "create scratch directory", err)
	}
	return nil
}

// Execute extracts audio and produces the transcript segments for the job.
func (t *Transcriber) Execute(ctx context.Context, job *queue.Job) error {
	t.progress(ctx, job, "Probing source media", 5)

	probe, err := t.inspect(ctx, t.cfg.FFprobeBinary(), job.VideoPath)
	if err != nil {
		return services.Wrap(services.ErrTranscript, stageName, "probe", "inspect source media", err)
	}
	if job.DurationSeconds == 0 {
		job.DurationSeconds = probe.DurationSeconds()
	}

	selected := audio.Select(probe.Streams, t.cfg.Transcribe.PreferredLanguages)
	if selected.PrimaryIndex < 0 {
		return services.Wrap(services.ErrTranscript, stageName, "probe", "source has no audio stream", nil)
	}

	scratchDir := filepath.Join(t.cfg.Paths.ScratchDir, fmt.Sprintf("job_%d", job.ID))
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "create job scratch directory", err)
	}

	audioPath := filepath.Join(scratchDir, "audio.wav")
	t.progress(ctx, job, "Extracting audio", 20)
	if err := t.ffmpeg.ExtractAudio(ctx, job.VideoPath, audioPath, selected.PrimaryIndex); err != nil {
		return services.Wrap(services.ErrTranscript, stageName, "extract", "extract audio track", err)
	}
	job.AudioPath = audioPath

	t.progress(ctx, job, "Transcribing audio", 40)
	transcript, err := t.whisper.Transcribe(ctx, audioPath, scratchDir)
	if err != nil {
		return services.Wrap(services.ErrTranscript, stageName, "transcribe", "run transcriber", err)
	}
	if len(transcript.Segments) == 0 {
		return services.Wrap(services.ErrTranscript, stageName, "transcribe", "transcript contains no segments", nil)
	}
	if err := whisper.ValidateSegments(transcript.Segments); err != nil {
		return services.Wrap(services.ErrTranscript, stageName, "validate", "transcript segments malformed", err)
	}

	job.Language = resolveLanguage(transcript, selected.Language)

	segments := make([]queue.Segment, len(transcript.Segments))
	for i, window := range transcript.Segments {
		segments[i] = queue.Segment{
			JobID:        job.ID,
			Seq:          i,
			StartSeconds: window.Start,
			EndSeconds:   window.End,
			Text:         window.Text,
		}
	}
	if err := t.store.ReplaceSegments(ctx, job.ID, segments); err != nil {
		return fmt.Errorf("persist transcript segments: %w", err)
	}
	if err := t.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist transcribed job: %w", err)
	}
	t.progress(ctx, job, "Transcription complete", 100)

	t.logger.InfoContext(ctx, "transcript ready",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("segments", len(segments)),
		logging.String("language", job.Language))
	return nil
}

// HealthCheck verifies the media and transcription binaries are on PATH.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{t.cfg.FFmpegBinary(), t.cfg.FFprobeBinary(), t.cfg.WhisperBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("%s not found in PATH", binary))
		}
	}
	return stage.Healthy(stageName)
}

// resolveLanguage prefers what the transcriber detected, then statistical
// detection over the transcript text, then the audio stream's language tag.
func resolveLanguage(transcript whisper.Transcript, streamLanguage string) string {
	if transcript.Language != "" {
		return transcript.Language
	}
	if transcript.Text != "" {
		info := whatlanggo.Detect(transcript.Text)
		if info.IsReliable() {
			if code := info.Lang.Iso6391(); code != "" {
				return code
			}
		}
	}
	return streamLanguage
}

func (t *Transcriber) progress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(stageName, message, percent)
	if err := t.store.UpdateProgress(ctx, job); err != nil {
		t.logger.WarnContext(ctx, "persist progress", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

var _ stage.Handler = (*Transcriber)(nil)
