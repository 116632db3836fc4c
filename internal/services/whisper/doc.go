// Package whisper wraps the whisper command-line transcriber.
package whisper
