package generation

import (
	"context"
	"fmt"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

// ImageRunner is the subset of ImageSubmitter the scheduler needs.
type ImageRunner interface {
	Submit(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// SchedulerOptions wires a Scheduler.
type SchedulerOptions struct {
	Projects  domain.ProjectRepository
	Images    ImageRunner
	Logger    infra.Logger
	BatchSize int
	Clock     func() time.Time
}

// Scheduler dispatches scheduled image generations for projects whose
// interval has elapsed.
type Scheduler struct {
	projects  domain.ProjectRepository
	images    ImageRunner
	logger    infra.Logger
	batchSize int
	now       func() time.Time
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 10
	}
	return &Scheduler{
		projects:  opts.Projects,
		images:    opts.Images,
		logger:    opts.Logger,
		batchSize: batch,
		now:       clock,
	}
}

// RunOnce claims due projects and generates one image for each. Claiming
// advances the project's last generation timestamp, so a project whose
// generation fails waits for its next interval instead of retrying hot.
// It returns the number of successful generations.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	projects, err := s.projects.ClaimDue(ctx, s.batchSize, s.now())
	if err != nil {
		return 0, fmt.Errorf("claim due projects: %w", err)
	}
	generated := 0
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return generated, err
		}
		res, err := s.images.Submit(ctx, ImageRequest{ProjectID: p.ID})
		if err != nil {
			s.logger.Error().Err(err).Str("project_id", p.ID).Msg("scheduler: generation failed")
			continue
		}
		generated++
		s.logger.Info().Str("project_id", p.ID).Str("job_id", res.JobID).Msg("scheduler: generation dispatched")
	}
	return generated, nil
}
