// Package gemini scores transcript segments and generates clip metadata via
// the Gemini API, with keyword heuristics as an offline fallback.
package gemini
