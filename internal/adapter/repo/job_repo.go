package repo

import (
	"context"
	"fmt"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record and fills in CreatedAt.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob,
		job.ID,
		job.ProjectID,
		job.ScheduleID,
		string(job.Kind),
		string(job.Trigger),
		string(job.Status),
		job.ExternalJobID,
		job.ScheduledAt,
		job.StartedAt,
	)
	if err := row.Scan(&job.CreatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// MarkRunning advances a pre-created job. A job that is unknown or already
// past running yields domain.ErrNotFound.
func (r *JobRepositoryPG) MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error {
	if !isUUID(jobID) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobRunning, jobID, startedAt)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkProcessing records the provider handle of an asynchronous job.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID, externalJobID string, startedAt time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobProcessing, jobID, externalJobID, startedAt)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// Complete moves a non-terminal job to completed.
func (r *JobRepositoryPG) Complete(ctx context.Context, c domain.JobCompletion) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, c.JobID, c.ExternalJobID, c.ImagesGenerated, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// Fail moves a non-terminal job to failed with the given message.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, jobID, message, at)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// GetByExternalID finds the job correlated with a provider prediction.
func (r *JobRepositoryPG) GetByExternalID(ctx context.Context, externalJobID string) (*domain.GenerationJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByExternalID, externalJobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// ListPending returns non-terminal jobs that carry a provider handle, oldest first.
func (r *JobRepositoryPG) ListPending(ctx context.Context, limit int) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPendingJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FailStale fails running jobs that never received a provider handle and
// started before cutoff.
func (r *JobRepositoryPG) FailStale(ctx context.Context, cutoff time.Time, message string, at time.Time) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QFailStaleRunningJobs, cutoff, message, at)
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		jobs = append(jobs, domain.GenerationJob{
			ID:           id,
			Kind:         domain.JobKind(kind),
			Status:       domain.JobStatusFailed,
			ErrorMessage: message,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row scanner) (*domain.GenerationJob, error) {
	var (
		job                    domain.GenerationJob
		kind, trigger, status  string
		scheduledAt, startedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.ScheduleID,
		&kind,
		&trigger,
		&status,
		&job.ExternalJobID,
		&scheduledAt,
		&startedAt,
		&job.CompletedAt,
		&job.ImagesGenerated,
		&job.ErrorMessage,
		&job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Trigger = domain.JobTrigger(trigger)
	job.Status = domain.JobStatus(status)
	if scheduledAt != nil {
		job.ScheduledAt = *scheduledAt
	}
	if startedAt != nil {
		job.StartedAt = *startedAt
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
