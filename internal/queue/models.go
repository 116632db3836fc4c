package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusAnalyzing    Status = "analyzing"
	StatusEditing      Status = "editing"
	StatusPublishing   Status = "publishing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// UserCancelReason is the failure message recorded when a user cancels a job.
const UserCancelReason = "Cancelled by user"

// DaemonStopReason is the failure message recorded when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusTranscribing,
	StatusAnalyzing,
	StatusEditing,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusAnalyzing:    {},
	StatusEditing:      {},
	StatusPublishing:   {},
}

// allowedTransitions maps a target status to the statuses a job may move from.
var allowedTransitions = map[Status][]Status{
	StatusDownloading:  {StatusPending},
	StatusTranscribing: {StatusDownloading},
	StatusAnalyzing:    {StatusTranscribing},
	StatusEditing:      {StatusAnalyzing},
	StatusPublishing:   {StatusEditing},
	// Editing may finish the job directly when publishing is disabled.
	StatusCompleted: {StatusEditing, StatusPublishing},
	StatusFailed: {
		StatusPending,
		StatusDownloading,
		StatusTranscribing,
		StatusAnalyzing,
		StatusEditing,
		StatusPublishing,
	},
	StatusPending: {StatusFailed},
}

// TransitionAllowed reports whether a job may move from one status to another.
func TransitionAllowed(from, to Status) bool {
	for _, candidate := range allowedTransitions[to] {
		if candidate == from {
			return true
		}
	}
	return false
}

// PublishState describes the publish outcome of a rendered clip.
type PublishState string

const (
	PublishStateNotPublished PublishState = "not_published"
	PublishStatePublished    PublishState = "published"
	PublishStateFailed       PublishState = "publish_failed"
)

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Job represents a pipeline job persisted in SQLite.
type Job struct {
	ID              int64
	SourceURL       string
	Title           string
	Status          Status
	Quality         string
	AspectRatio     string
	PublishEnabled  bool
	VideoPath       string
	AudioPath       string
	DurationSeconds float64
	Language        string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	FailureCause    string
	CorrelationID   string
	CancelRequested bool
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Segment is a scored transcript window for a job.
type Segment struct {
	ID           int64
	JobID        int64
	Seq          int
	StartSeconds float64
	EndSeconds   float64
	Text         string
	Engagement   float64
	Emotion      float64
	Viral        float64
	Quotability  float64
	Score        float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndSeconds - s.StartSeconds
}

// Clip is a rendered vertical clip derived from a selected segment.
type Clip struct {
	ID            int64
	JobID         int64
	SegmentID     int64
	Seq           int
	Title         string
	Description   string
	Hashtags      string
	StartSeconds  float64
	EndSeconds    float64
	Score         float64
	OutputPath    string
	ThumbnailPath string
	RenderError   string
	PublishState  PublishState
	PublishedURL  string
	PublishError  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the job is in an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsTerminal returns true when the job can no longer progress.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message and cause label.
func (j *Job) SetFailed(message, cause string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.FailureCause = cause
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.ProgressStage = "Failed"
	j.LastHeartbeat = nil
}
