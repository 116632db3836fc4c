package config

const (
	defaultMediaDir   = "~/.local/share/clipforge/media"
	defaultClipsDir   = "~/.local/share/clipforge/clips"
	defaultScratchDir = "~/.local/share/clipforge/scratch"
	defaultLogDir     = "~/.local/share/clipforge/logs"

	defaultMinScore       = 0.5
	defaultMinClipSeconds = 10
	defaultMaxClipSeconds = 60
	defaultMaxClipCount   = 5
	defaultQuality        = "1080p"
	defaultAspectRatio    = "9:16"

	defaultDownloadTimeoutSeconds   = 1800
	defaultTranscribeTimeoutSeconds = 3600
	defaultTranscribeModel          = "large-v3"

	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel          = "gemini-2.5-pro"
	defaultGeminiTimeoutSeconds = 60

	defaultRenderPreset         = "medium"
	defaultRenderCRF            = 23
	defaultRenderAudioBitrate   = "128k"
	defaultRenderTimeoutSeconds = 900

	defaultPublishBaseURL        = "https://www.googleapis.com/youtube/v3"
	defaultPublishUploadURL      = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultPublishCategoryID     = "24"
	defaultPublishPrivacyStatus  = "public"
	defaultPublishTimeoutSeconds = 600

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 300
	defaultMaxConcurrentJobs  = 2

	defaultRetentionDays     = 7
	defaultRetentionSchedule = "0 3 * * *"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:   defaultMediaDir,
			ClipsDir:   defaultClipsDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Pipeline: Pipeline{
			MinScore:           defaultMinScore,
			MinClipSeconds:     defaultMinClipSeconds,
			MaxClipSeconds:     defaultMaxClipSeconds,
			MaxClipCount:       defaultMaxClipCount,
			DefaultQuality:     defaultQuality,
			DefaultAspectRatio: defaultAspectRatio,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Transcribe: Transcribe{
			Model:              defaultTranscribeModel,
			PreferredLanguages: []string{"en"},
			TimeoutSeconds:     defaultTranscribeTimeoutSeconds,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Render: Render{
			Preset:         defaultRenderPreset,
			CRF:            defaultRenderCRF,
			AudioBitrate:   defaultRenderAudioBitrate,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Publish: Publish{
			BaseURL:        defaultPublishBaseURL,
			UploadURL:      defaultPublishUploadURL,
			CategoryID:     defaultPublishCategoryID,
			PrivacyStatus:  defaultPublishPrivacyStatus,
			TimeoutSeconds: defaultPublishTimeoutSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
		},
		Retention: Retention{
			Enabled:  true,
			Days:     defaultRetentionDays,
			Schedule: defaultRetentionSchedule,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
