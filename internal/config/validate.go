package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownQualities = map[string]struct{}{
	"480p":  {},
	"720p":  {},
	"1080p": {},
	"best":  {},
}

var knownAspectRatios = map[string]struct{}{
	"9:16": {},
	"1:1":  {},
	"4:5":  {},
}

// Validate verifies configuration invariants. Paths are not required to exist
// yet; EnsureDirectories creates them at daemon startup.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		problems = append(problems, "paths.media_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ClipsDir) == "" {
		problems = append(problems, "paths.clips_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		problems = append(problems, "paths.scratch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}

	if c.Pipeline.MinScore < 0 || c.Pipeline.MinScore > 1 {
		problems = append(problems, fmt.Sprintf("pipeline.min_score must be within [0, 1], got %v", c.Pipeline.MinScore))
	}
	if c.Pipeline.MinClipSeconds <= 0 {
		problems = append(problems, "pipeline.min_clip_seconds must be positive")
	}
	if c.Pipeline.MaxClipSeconds < c.Pipeline.MinClipSeconds {
		problems = append(problems, "pipeline.max_clip_seconds must be >= pipeline.min_clip_seconds")
	}
	if c.Pipeline.MaxClipCount <= 0 {
		problems = append(problems, "pipeline.max_clip_count must be positive")
	}
	if _, ok := knownQualities[c.Pipeline.DefaultQuality]; !ok {
		problems = append(problems, fmt.Sprintf("pipeline.default_quality %q is not one of 480p, 720p, 1080p, best", c.Pipeline.DefaultQuality))
	}
	if _, ok := knownAspectRatios[c.Pipeline.DefaultAspectRatio]; !ok {
		problems = append(problems, fmt.Sprintf("pipeline.default_aspect_ratio %q is not one of 9:16, 1:1, 4:5", c.Pipeline.DefaultAspectRatio))
	}

	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		problems = append(problems, "workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		problems = append(problems, "workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		problems = append(problems, "workflow.max_concurrent_jobs must be positive")
	}

	if c.Retention.Enabled {
		if c.Retention.Days <= 0 {
			problems = append(problems, "retention.days must be positive when retention is enabled")
		}
		if strings.TrimSpace(c.Retention.Schedule) == "" {
			problems = append(problems, "retention.schedule must be set when retention is enabled")
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
