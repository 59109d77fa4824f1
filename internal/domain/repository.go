package domain

import (
	"context"
	"time"
)

// ProjectRepository reads projects and maintains their generation timestamp.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*Project, error)
	TouchLastGeneration(ctx context.Context, id string, at time.Time) error
	// ClaimDue returns projects whose schedule is due and advances their
	// last generation timestamp in the same statement, so concurrent
	// schedulers never claim the same project twice.
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]Project, error)
}

// ScheduleRepository reads schedules.
type ScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*Schedule, error)
	ActiveForProject(ctx context.Context, projectID string) (*Schedule, error)
}

// JobRepository persists generation jobs. Complete and Fail only touch
// non-terminal rows and return ErrAlreadyFinal otherwise.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error
	MarkProcessing(ctx context.Context, jobID, externalJobID string, startedAt time.Time) error
	Complete(ctx context.Context, c JobCompletion) error
	Fail(ctx context.Context, jobID, message string, at time.Time) error
	GetByExternalID(ctx context.Context, externalJobID string) (*GenerationJob, error)
	ListPending(ctx context.Context, limit int) ([]GenerationJob, error)
	// FailStale fails running jobs without a provider handle that started
	// before cutoff and returns their ids and kinds.
	FailStale(ctx context.Context, cutoff time.Time, message string, at time.Time) ([]GenerationJob, error)
}

// ImageRepository persists synchronous image artifacts.
type ImageRepository interface {
	Create(ctx context.Context, image *GeneratedImage) error
}

// ContentRepository persists asynchronous artifacts. CompleteByJob and
// FailByJob only touch rows still in processing.
type ContentRepository interface {
	Create(ctx context.Context, content *GeneratedContent) error
	CompleteByJob(ctx context.Context, jobID, url string, generationSeconds *float64, at time.Time) error
	FailByJob(ctx context.Context, jobID, message string, at time.Time) error
}
