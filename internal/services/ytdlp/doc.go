// Package ytdlp wraps the yt-dlp command-line downloader for source video
// acquisition.
package ytdlp
