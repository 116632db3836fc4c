package ffprobe

import "testing"

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2, "tags": {"language": "eng"}},
    {"index": 2, "codec_type": "audio", "codec_name": "aac", "channels": 6, "tags": {"LANGUAGE": "spa"}}
  ],
  "format": {"filename": "input.mp4", "nb_streams": 3, "duration": "1832.4", "size": "104857600"}
}`

func TestParseExtractsStreamsAndFormat(t *testing.T) {
	result, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Errorf("video streams = %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Errorf("audio streams = %d", result.AudioStreamCount())
	}
	if got := result.DurationSeconds(); got != 1832.4 {
		t.Errorf("duration = %v", got)
	}
	if got := result.SizeBytes(); got != 104857600 {
		t.Errorf("size = %d", got)
	}
}

func TestStreamLanguageIsCaseInsensitive(t *testing.T) {
	result, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	audio := result.AudioStreams()
	if audio[0].Language() != "eng" {
		t.Errorf("language = %q", audio[0].Language())
	}
	if audio[1].Language() != "spa" {
		t.Errorf("language = %q", audio[1].Language())
	}
}

func TestDurationSecondsHandlesMissingValue(t *testing.T) {
	result, err := Parse([]byte(`{"streams": [], "format": {}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := result.DurationSeconds(); got != 0 {
		t.Errorf("duration = %v, want 0", got)
	}
}
