// Package ffmpeg wraps the ffmpeg command-line tool for audio extraction,
// vertical clip rendering, and thumbnails.
package ffmpeg
