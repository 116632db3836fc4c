// Package logging builds slog loggers with clipforge's console and JSON
// handlers and provides standardized field names plus context-derived
// attribute helpers so every component logs job id, stage, and correlation id
// consistently.
package logging
