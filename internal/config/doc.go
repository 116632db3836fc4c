// Package config loads, normalizes, and validates clipforge's TOML
// configuration. Values resolve in order: built-in defaults, the config file,
// then environment fallbacks for secrets (GEMINI_API_KEY,
// CLIPFORGE_PUBLISH_TOKEN).
package config
