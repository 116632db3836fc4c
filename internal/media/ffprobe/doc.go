// Package ffprobe wraps the ffprobe CLI for container and stream inspection.
package ffprobe
