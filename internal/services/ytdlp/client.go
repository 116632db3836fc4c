package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Metadata captures the source video details reported by yt-dlp before download.
type Metadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration"`
	Uploader        string  `json:"uploader"`
	WebpageURL      string  `json:"webpage_url"`
}

// Client defines source video acquisition behaviour.
type Client interface {
	Probe(ctx context.Context, sourceURL string) (Metadata, error)
	Download(ctx context.Context, sourceURL, quality, destDir string) (string, error)
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

// WithCookiesFile points yt-dlp at a cookies file for gated content.
func WithCookiesFile(path string) Option {
	return func(c *CLI) {
		c.cookiesFile = strings.TrimSpace(path)
	}
}

// CLI wraps the yt-dlp command-line downloader.
type CLI struct {
	binary      string
	cookiesFile string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ValidateSourceURL rejects references yt-dlp cannot be asked to fetch.
func ValidateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("source url is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed source url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("source url has no host")
	}
	return nil
}

// formatFor maps a quality preference to a yt-dlp format selector.
func formatFor(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "480p":
		return "bestvideo[height<=480]+bestaudio/best[height<=480]"
	case "720p":
		return "bestvideo[height<=720]+bestaudio/best[height<=720]"
	case "1080p", "":
		return "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	default:
		return "bestvideo+bestaudio/best"
	}
}

func (c *CLI) commonArgs() []string {
	args := []string{"--no-playlist", "--no-warnings"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	return args
}

// Probe fetches video metadata without downloading.
func (c *CLI) Probe(ctx context.Context, sourceURL string) (Metadata, error) {
	if err := ValidateSourceURL(sourceURL); err != nil {
		return Metadata{}, err
	}

	args := append(c.commonArgs(), "--dump-json", "--skip-download", "--", sourceURL)
	cmd := commandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp probe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var meta Metadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp probe: parse metadata: %w", err)
	}
	return meta, nil
}

// Download fetches the source video into destDir and returns the final file path.
func (c *CLI) Download(ctx context.Context, sourceURL, quality, destDir string) (string, error) {
	if err := ValidateSourceURL(sourceURL); err != nil {
		return "", err
	}
	destDir = strings.TrimSpace(destDir)
	if destDir == "" {
		return "", errors.New("destination directory required")
	}

	args := append(c.commonArgs(), downloadArgs(quality, destDir)...)
	args = append(args, "--", sourceURL)
	cmd := commandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}

	// yt-dlp prints the final file path as the last stdout line via --print.
	var finalPath string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			finalPath = line
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		_ = cmd.Wait()
		return "", fmt.Errorf("read yt-dlp output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if finalPath == "" {
		return "", errors.New("yt-dlp download: no output path reported")
	}
	return finalPath, nil
}

func downloadArgs(quality, destDir string) []string {
	return []string{
		"-f", formatFor(quality),
		"--merge-output-format", "mp4",
		"-o", destDir + "/source_%(id)s.%(ext)s",
		"--no-simulate",
		"--print", "after_move:filepath",
	}
}

var _ Client = (*CLI)(nil)
