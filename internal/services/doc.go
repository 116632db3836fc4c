// Package services provides shared infrastructure for the capability clients:
// sentinel-marker error wrapping with structured detail extraction, and
// context annotation helpers used for correlated structured logging.
package services
