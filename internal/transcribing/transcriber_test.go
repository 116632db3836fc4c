package transcribing

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/services/whisper"
	"clipforge/internal/testsupport"
)

type stubFFmpeg struct {
	extractErr   error
	extractedIdx int
	outputPath   string
}

func (s *stubFFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string, streamIndex int) error {
	s.extractedIdx = streamIndex
	s.outputPath = outputPath
	return s.extractErr
}

func (s *stubFFmpeg) RenderClip(ctx context.Context, inputPath, outputPath string, start, end float64, opts ffmpeg.RenderOptions) error {
	panic("not used")
}

func (s *stubFFmpeg) Thumbnail(ctx context.Context, videoPath, outputPath string) error {
	panic("not used")
}

type stubWhisper struct {
	transcript whisper.Transcript
	err        error
}

func (s *stubWhisper) Transcribe(ctx context.Context, audioPath, outputDir string) (whisper.Transcript, error) {
	return s.transcript, s.err
}

func probeResult() ffprobe.Result {
	payload := []byte(`{
        "streams": [
            {"index": 0, "codec_type": "video", "width": 1920, "height": 1080},
            {"index": 1, "codec_type": "audio", "channels": 2, "tags": {"language": "eng"}}
        ],
        "format": {"duration": "600.5"}
    }`)
	result, err := ffprobe.Parse(payload)
	if err != nil {
		panic(err)
	}
	return result
}

func newTestTranscriber(t *testing.T) (*Transcriber, *stubWhisper, *queue.Store, *queue.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Transcribe.PreferredLanguages = []string{"en"}
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "https://example.com/watch?v=abc")

	videoPath := cfg.Paths.MediaDir + "/source.mp4"
	testsupport.WriteFile(t, videoPath, 1024)
	job.VideoPath = videoPath

	transcriber := New(store, cfg, logging.NewNop())
	transcriber.inspect = func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult(), nil
	}
	transcriber.ffmpeg = &stubFFmpeg{}
	whisperStub := &stubWhisper{}
	transcriber.whisper = whisperStub
	return transcriber, whisperStub, store, job
}

func TestPrepareRequiresSourceVideo(t *testing.T) {
	transcriber, _, _, job := newTestTranscriber(t)
	job.VideoPath = ""

	err := transcriber.Prepare(context.Background(), job)
	if !errors.Is(err, services.ErrTranscript) {
		t.Fatalf("expected transcript error, got %v", err)
	}
}

func TestExecutePersistsSegments(t *testing.T) {
	transcriber, whisperStub, store, job := newTestTranscriber(t)
	whisperStub.transcript = whisper.Transcript{
		Text:     "hello world this is a test",
		Language: "en",
		Segments: []whisper.Segment{
			{Start: 0, End: 5.5, Text: " hello world "},
			{Start: 5.5, End: 12, Text: "this is a test"},
		},
	}

	if err := transcriber.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if job.Language != "en" {
		t.Fatalf("language = %q", job.Language)
	}
	if job.AudioPath == "" {
		t.Fatal("expected audio path recorded")
	}

	segments, err := store.SegmentsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d", len(segments))
	}
	if segments[0].EndSeconds != 5.5 || segments[1].StartSeconds != 5.5 {
		t.Fatalf("segment bounds wrong: %+v", segments)
	}
}

func TestExecuteFailsOnEmptyTranscript(t *testing.T) {
	transcriber, whisperStub, _, job := newTestTranscriber(t)
	whisperStub.transcript = whisper.Transcript{Language: "en"}

	err := transcriber.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrTranscript) {
		t.Fatalf("expected transcript error, got %v", err)
	}
	if services.CauseLabel(err) != "TranscriptError" {
		t.Fatalf("cause label = %q", services.CauseLabel(err))
	}
}

func TestExecuteFailsOnOverlappingSegments(t *testing.T) {
	transcriber, whisperStub, _, job := newTestTranscriber(t)
	whisperStub.transcript = whisper.Transcript{
		Language: "en",
		Segments: []whisper.Segment{
			{Start: 0, End: 10, Text: "one"},
			{Start: 5, End: 15, Text: "two"},
		},
	}

	err := transcriber.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrTranscript) {
		t.Fatalf("expected transcript error, got %v", err)
	}
}

func TestExecuteFailsWithoutAudioStream(t *testing.T) {
	transcriber, _, _, job := newTestTranscriber(t)
	transcriber.inspect = func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Parse([]byte(`{"streams":[{"index":0,"codec_type":"video"}],"format":{}}`))
	}

	err := transcriber.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrTranscript) {
		t.Fatalf("expected transcript error, got %v", err)
	}
}

func TestResolveLanguageFallsBackToDetection(t *testing.T) {
	transcript := whisper.Transcript{
		Text: "the quick brown fox jumps over the lazy dog and keeps on running through the quiet evening fields",
	}

	if got := resolveLanguage(transcript, "es"); got != "en" {
		t.Fatalf("language = %q", got)
	}
}

func TestResolveLanguageUsesStreamTagLast(t *testing.T) {
	if got := resolveLanguage(whisper.Transcript{}, "es"); got != "es" {
		t.Fatalf("language = %q", got)
	}
}
