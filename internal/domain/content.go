package domain

import "time"

// GeneratedImage is the artifact row written by a synchronous image job.
type GeneratedImage struct {
	ID                    string         `json:"id"`
	JobID                 string         `json:"job_id"`
	ProjectID             string         `json:"project_id"`
	ImageURL              string         `json:"image_url"`
	Prompt                string         `json:"prompt"`
	Model                 string         `json:"model"`
	GenerationTimeSeconds float64        `json:"generation_time_seconds"`
	Metadata              map[string]any `json:"metadata"`
	CreatedAt             time.Time      `json:"created_at"`
}

// ContentStatus tracks an asynchronous artifact until the provider settles.
type ContentStatus string

const (
	ContentStatusProcessing ContentStatus = "processing"
	ContentStatusCompleted  ContentStatus = "completed"
	ContentStatusFailed     ContentStatus = "failed"
)

// GeneratedContent is the artifact row of an asynchronous (video) job. It is
// created in processing and settled once by the completion processor.
type GeneratedContent struct {
	ID                    string         `json:"id"`
	JobID                 string         `json:"job_id"`
	ScheduleID            string         `json:"schedule_id"`
	UserID                string         `json:"user_id"`
	TaskID                string         `json:"task_id"`
	ContentType           JobKind        `json:"content_type"`
	Status                ContentStatus  `json:"status"`
	URL                   string         `json:"url,omitempty"`
	Prompt                string         `json:"prompt"`
	Model                 string         `json:"model"`
	GenerationTimeSeconds *float64       `json:"generation_time_seconds,omitempty"`
	Metadata              map[string]any `json:"metadata"`
	CreatedAt             time.Time      `json:"created_at"`
}
