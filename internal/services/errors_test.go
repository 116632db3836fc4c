package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrAcquisition, "downloading", "fetch media", "yt-dlp exited with status 1", cause)

	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected errors.Is(err, ErrAcquisition) to hold: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is(err, cause) to hold: %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"acquisition error", "downloading", "fetch media", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "editing", "render clip", "boom", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestDetails(t *testing.T) {
	cause := errors.New("http 503")
	err := Wrap(ErrScoringUnavailable, "analyzing", "score segment", "Gemini request failed", cause)

	details := Details(err)
	if details.Stage != "analyzing" {
		t.Errorf("stage = %q", details.Stage)
	}
	if details.Operation != "score segment" {
		t.Errorf("operation = %q", details.Operation)
	}
	if details.Message != "Gemini request failed" {
		t.Errorf("message = %q", details.Message)
	}
	if details.Cause != cause {
		t.Errorf("cause = %v", details.Cause)
	}
}

func TestDetailsPlainError(t *testing.T) {
	details := Details(errors.New("plain"))
	if details.Message != "plain" {
		t.Errorf("message = %q", details.Message)
	}
	if details.Stage != "" || details.Operation != "" {
		t.Errorf("unexpected structured fields: %+v", details)
	}
}

func TestCauseLabel(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Wrap(ErrAcquisition, "downloading", "", "", nil), "AcquisitionError"},
		{Wrap(ErrUnsupportedSource, "downloading", "", "", nil), "UnsupportedSourceError"},
		{Wrap(ErrTranscript, "transcribing", "", "", nil), "TranscriptError"},
		{Wrap(ErrNoViableSegments, "analyzing", "", "", nil), "NoViableSegments"},
		{Wrap(ErrRender, "editing", "", "", nil), "RenderError"},
		{Wrap(ErrPublish, "publishing", "", "", nil), "PublishError"},
		{Wrap(ErrCancelled, "", "", "", nil), "Cancelled"},
		{errors.New("unclassified"), "InternalError"},
	}
	for _, tc := range cases {
		if got := CauseLabel(tc.err); got != tc.want {
			t.Errorf("CauseLabel(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestUnsupportedSourceWinsOverAcquisition(t *testing.T) {
	// An unsupported-source failure is also an acquisition-stage failure;
	// the more specific label must be reported.
	err := Wrap(ErrUnsupportedSource, "downloading", "validate url", "not a recognized video URL", ErrAcquisition)
	if got := CauseLabel(err); got != "UnsupportedSourceError" {
		t.Fatalf("CauseLabel = %q, want UnsupportedSourceError", got)
	}
}
