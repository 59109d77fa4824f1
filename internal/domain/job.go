package domain

import "time"

// JobKind distinguishes the media a job produces.
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// JobTrigger records who asked for a generation.
type JobTrigger string

const (
	JobTriggerManual    JobTrigger = "manual"
	JobTriggerScheduled JobTrigger = "scheduled"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	// JobStatusPending marks a job pre-created by a caller that has not
	// been started yet.
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GenerationJob is this system's record of one provider invocation. Status
// only moves forward: pending -> running -> processing -> completed|failed,
// with processing skipped for synchronous image jobs.
type GenerationJob struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id,omitempty"`
	ScheduleID      string     `json:"schedule_id,omitempty"`
	Kind            JobKind    `json:"kind"`
	Trigger         JobTrigger `json:"trigger"`
	Status          JobStatus  `json:"status"`
	ExternalJobID   string     `json:"external_job_id,omitempty"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ImagesGenerated int        `json:"images_generated"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JobCompletion carries the fields written when a job succeeds.
type JobCompletion struct {
	JobID           string
	ExternalJobID   string
	ImagesGenerated int
	CompletedAt     time.Time
}
