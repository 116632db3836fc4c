package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for stage failure classification. Stages wrap capability
// errors with one of these so the workflow manager can persist a concise,
// user-facing cause category instead of internal error chains.
var (
	ErrAcquisition        = errors.New("acquisition error")
	ErrUnsupportedSource  = errors.New("unsupported source")
	ErrTranscript         = errors.New("transcript error")
	ErrScoringUnavailable = errors.New("scoring unavailable")
	ErrNoViableSegments   = errors.New("no viable segments")
	ErrRender             = errors.New("render error")
	ErrPublish            = errors.New("publish error")
	ErrCancelled          = errors.New("cancelled")
	ErrConfiguration      = errors.New("configuration error")
	ErrTimeout            = errors.New("timeout")
	ErrTransient          = errors.New("transient failure")
)

var causeLabels = []struct {
	marker error
	label  string
}{
	{ErrUnsupportedSource, "UnsupportedSourceError"},
	{ErrAcquisition, "AcquisitionError"},
	{ErrTranscript, "TranscriptError"},
	{ErrScoringUnavailable, "ScoringUnavailable"},
	{ErrNoViableSegments, "NoViableSegments"},
	{ErrRender, "RenderError"},
	{ErrPublish, "PublishError"},
	{ErrCancelled, "Cancelled"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrTimeout, "Timeout"},
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker.Error(), detail, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *serviceError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// Detail carries the structured fields recovered from a wrapped stage error.
type Detail struct {
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure information from an error chain. For
// errors that were not produced by Wrap, Message falls back to err.Error().
func Details(err error) Detail {
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		return Detail{
			Stage:     svcErr.stage,
			Operation: svcErr.operation,
			Message:   svcErr.message,
			Cause:     svcErr.cause,
		}
	}
	if err != nil {
		return Detail{Message: err.Error()}
	}
	return Detail{}
}

// CauseLabel maps an error chain to the concise cause category persisted on a
// failed job and shown to status viewers.
func CauseLabel(err error) string {
	for _, entry := range causeLabels {
		if errors.Is(err, entry.marker) {
			return entry.label
		}
	}
	return "InternalError"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
