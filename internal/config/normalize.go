package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return err
	}
	if c.Paths.ClipsDir, err = expandPath(c.Paths.ClipsDir); err != nil {
		return err
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Download.CookiesFile != "" {
		if c.Download.CookiesFile, err = expandPath(c.Download.CookiesFile); err != nil {
			return err
		}
	}

	c.Pipeline.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Pipeline.DefaultQuality))
	c.Pipeline.DefaultAspectRatio = strings.TrimSpace(c.Pipeline.DefaultAspectRatio)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	c.Publish.Token = strings.TrimSpace(c.Publish.Token)
	if c.Publish.Token == "" {
		c.Publish.Token = strings.TrimSpace(os.Getenv("CLIPFORGE_PUBLISH_TOKEN"))
	}

	normalized := make([]string, 0, len(c.Transcribe.PreferredLanguages))
	for _, lang := range c.Transcribe.PreferredLanguages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang != "" {
			normalized = append(normalized, lang)
		}
	}
	c.Transcribe.PreferredLanguages = normalized

	return nil
}
