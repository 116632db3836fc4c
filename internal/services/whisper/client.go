package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// Segment is a transcript window reported by whisper.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the parsed whisper output for one audio file.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Client defines speech-to-text behaviour.
type Client interface {
	Transcribe(ctx context.Context, audioPath, outputDir string) (Transcript, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithModel selects the whisper model size.
func WithModel(model string) Option {
	return func(c *CLI) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLanguage forces a transcription language instead of auto-detection.
func WithLanguage(language string) Option {
	return func(c *CLI) {
		c.language = strings.TrimSpace(language)
	}
}

// CLI wraps the whisper command-line transcriber.
type CLI struct {
	binary   string
	model    string
	language string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "whisper", model: "small"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcribe runs whisper over the audio file and parses the JSON it writes
// next to the requested output directory.
func (c *CLI) Transcribe(ctx context.Context, audioPath, outputDir string) (Transcript, error) {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return Transcript{}, errors.New("audio path required")
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return Transcript{}, errors.New("output directory required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Transcript{}, fmt.Errorf("ensure whisper output dir: %w", err)
	}

	cmd := commandContext(ctx, c.binary, c.args(audioPath, outputDir)...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		return Transcript{}, fmt.Errorf("whisper transcribe: %w: %s", err, strings.TrimSpace(combined.String()))
	}

	resultPath := outputPathFor(audioPath, outputDir)
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read whisper output %s: %w", resultPath, err)
	}
	return ParseTranscript(data)
}

func (c *CLI) args(audioPath, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", c.model,
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	if c.language != "" {
		args = append(args, "--language", c.language)
	}
	return args
}

// outputPathFor mirrors whisper's naming: <output_dir>/<audio stem>.json.
func outputPathFor(audioPath, outputDir string) string {
	base := filepath.Base(audioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+".json")
}

// ParseTranscript decodes a whisper JSON payload and normalizes segment text.
func ParseTranscript(data []byte) (Transcript, error) {
	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return Transcript{}, fmt.Errorf("parse whisper output: %w", err)
	}
	for i := range transcript.Segments {
		transcript.Segments[i].Text = strings.TrimSpace(transcript.Segments[i].Text)
	}
	transcript.Text = strings.TrimSpace(transcript.Text)
	transcript.Language = strings.ToLower(strings.TrimSpace(transcript.Language))
	return transcript, nil
}

// ValidateSegments rejects transcripts whose segments are unsorted or overlap.
// The pipeline depends on ordered, non-overlapping windows downstream.
func ValidateSegments(segments []Segment) error {
	for i, segment := range segments {
		if segment.End < segment.Start {
			return fmt.Errorf("segment %d ends before it starts", i)
		}
		if i == 0 {
			continue
		}
		prev := segments[i-1]
		if segment.Start < prev.Start {
			return fmt.Errorf("segment %d is out of order", i)
		}
		if segment.Start < prev.End {
			return fmt.Errorf("segment %d overlaps segment %d", i, i-1)
		}
	}
	return nil
}

var _ Client = (*CLI)(nil)
