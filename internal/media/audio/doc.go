// Package audio chooses which audio stream of a source container feeds
// transcription.
package audio
