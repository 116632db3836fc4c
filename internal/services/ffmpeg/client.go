package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// RenderOptions controls how a vertical clip is encoded.
type RenderOptions struct {
	AspectRatio  string
	Preset       string
	CRF          int
	AudioBitrate string
}

// Client defines media transformation behaviour.
type Client interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string, streamIndex int) error
	RenderClip(ctx context.Context, inputPath, outputPath string, start, end float64, opts RenderOptions) error
	Thumbnail(ctx context.Context, videoPath, outputPath string) error
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

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ExtractAudio produces the mono 16 kHz WAV the transcriber expects.
// streamIndex selects the audio stream by its position among audio streams;
// pass a negative value to let ffmpeg choose.
func (c *CLI) ExtractAudio(ctx context.Context, inputPath, outputPath string, streamIndex int) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	return c.run(ctx, extractAudioArgs(inputPath, outputPath, streamIndex))
}

func extractAudioArgs(inputPath, outputPath string, streamIndex int) []string {
	args := []string{"-i", inputPath}
	if streamIndex >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:a:%d", streamIndex))
	}
	args = append(args,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", outputPath,
	)
	return args
}

// RenderClip cuts [start, end) out of the source and reframes it vertically.
func (c *CLI) RenderClip(ctx context.Context, inputPath, outputPath string, start, end float64, opts RenderOptions) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	if end <= start {
		return fmt.Errorf("invalid clip range [%v, %v)", start, end)
	}
	return c.run(ctx, renderClipArgs(inputPath, outputPath, start, end, opts))
}

func renderClipArgs(inputPath, outputPath string, start, end float64, opts RenderOptions) []string {
	preset := opts.Preset
	if preset == "" {
		preset = "medium"
	}
	crf := opts.CRF
	if crf <= 0 {
		crf = 23
	}
	audioBitrate := opts.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = "128k"
	}

	return []string{
		"-i", inputPath,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-vf", filterFor(opts.AspectRatio),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		"-y", outputPath,
	}
}

// filterFor maps an aspect ratio to the scale-and-crop filter that fills the
// target frame without letterboxing.
func filterFor(aspectRatio string) string {
	width, height := 1080, 1920
	switch strings.TrimSpace(aspectRatio) {
	case "1:1":
		width, height = 1080, 1080
	case "4:5":
		width, height = 1080, 1350
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width, height, width, height)
}

// Thumbnail grabs a frame one second in, sized for a vertical preview.
func (c *CLI) Thumbnail(ctx context.Context, videoPath, outputPath string) error {
	if videoPath == "" {
		return errors.New("video path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	return c.run(ctx, thumbnailArgs(videoPath, outputPath))
}

func thumbnailArgs(videoPath, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-ss", "00:00:01.000",
		"-vframes", "1",
		"-s", "640x1136",
		"-y", outputPath,
	}
}

func (c *CLI) run(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, c.binary, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(combined.String()))
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

var _ Client = (*CLI)(nil)
