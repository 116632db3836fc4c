package whisper

import (
	"strings"
	"testing"
)

func TestParseTranscript(t *testing.T) {
	payload := `{
	  "text": " Full transcript text. ",
	  "language": "EN",
	  "segments": [
	    {"start": 0.0, "end": 4.2, "text": " Hello there. "},
	    {"start": 4.2, "end": 9.8, "text": "Welcome to the show."}
	  ]
	}`

	transcript, err := ParseTranscript([]byte(payload))
	if err != nil {
		t.Fatalf("ParseTranscript failed: %v", err)
	}
	if transcript.Language != "en" {
		t.Errorf("language = %q", transcript.Language)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("segments = %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "Hello there." {
		t.Errorf("text not trimmed: %q", transcript.Segments[0].Text)
	}
	if transcript.Segments[1].End != 9.8 {
		t.Errorf("end = %v", transcript.Segments[1].End)
	}
}

func TestParseTranscriptRejectsGarbage(t *testing.T) {
	if _, err := ParseTranscript([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateSegments(t *testing.T) {
	cases := []struct {
		name     string
		segments []Segment
		wantErr  bool
	}{
		{"sorted with gap", []Segment{{Start: 0, End: 5}, {Start: 10, End: 15}}, false},
		{"contiguous", []Segment{{Start: 0, End: 5}, {Start: 5, End: 10}}, false},
		{"empty", nil, false},
		{"out of order", []Segment{{Start: 10, End: 15}, {Start: 0, End: 5}}, true},
		{"overlapping", []Segment{{Start: 0, End: 8}, {Start: 5, End: 12}}, true},
		{"inverted segment", []Segment{{Start: 5, End: 2}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSegments(tc.segments)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestArgsIncludeModelAndLanguage(t *testing.T) {
	cli := NewCLI(WithModel("medium"), WithLanguage("en"))
	joined := strings.Join(cli.args("/scratch/audio.wav", "/scratch/out"), " ")
	for _, want := range []string{
		"--model medium",
		"--output_format json",
		"--output_dir /scratch/out",
		"--language en",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %q", want, joined)
		}
	}
}

func TestOutputPathMirrorsAudioStem(t *testing.T) {
	got := outputPathFor("/scratch/job_7/audio.wav", "/scratch/job_7")
	if got != "/scratch/job_7/audio.json" {
		t.Errorf("outputPathFor = %q", got)
	}
}
