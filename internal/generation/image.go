package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/metrics"
	"genstudio/internal/providers/replicate"
)

// MissingProjectIDMessage is returned verbatim to clients.
const MissingProjectIDMessage = "Missing required field: project_id is required"

// ImageSettings are the fixed provider parameters for image jobs.
type ImageSettings struct {
	Version         string
	AspectRatio     string
	OutputFormat    string
	SafetyTolerance int
	// Timeout bounds the provider call; zero leaves it to the caller's context.
	Timeout time.Duration
}

// ImageSubmitterOptions wires an ImageSubmitter.
type ImageSubmitterOptions struct {
	Projects  domain.ProjectRepository
	Schedules domain.ScheduleRepository
	Jobs      domain.JobRepository
	Images    domain.ImageRepository
	Provider  ImageProvider
	Settings  ImageSettings
	Logger    infra.Logger
	Clock     func() time.Time
}

// ImageSubmitter runs one synchronous image generation for a project.
type ImageSubmitter struct {
	projects  domain.ProjectRepository
	schedules domain.ScheduleRepository
	jobs      domain.JobRepository
	images    domain.ImageRepository
	provider  ImageProvider
	settings  ImageSettings
	logger    infra.Logger
	now       func() time.Time
}

func NewImageSubmitter(opts ImageSubmitterOptions) *ImageSubmitter {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock
	}
	return &ImageSubmitter{
		projects:  opts.Projects,
		schedules: opts.Schedules,
		jobs:      opts.Jobs,
		images:    opts.Images,
		provider:  opts.Provider,
		settings:  opts.Settings,
		logger:    opts.Logger,
		now:       clock,
	}
}

// ImageRequest identifies the project to generate for. JobID, when set,
// names a pre-created job that is advanced instead of creating a new one.
type ImageRequest struct {
	ProjectID        string
	JobID            string
	ManualGeneration bool
	RequesterCountry string
}

// ImageResult is a successful generation. Warnings lists bookkeeping writes
// that failed after the image row was stored; they do not make the
// generation unsuccessful.
type ImageResult struct {
	Image    *domain.GeneratedImage
	Duration time.Duration
	JobID    string
	Warnings domain.Warnings
}

// Submit validates the request, records the job, calls the provider and
// stores the artifact. Once a job has been created or advanced, any error
// leaves that job failed (best effort).
func (s *ImageSubmitter) Submit(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		metrics.RecordSubmission(string(domain.JobKindImage), "rejected")
		return nil, domain.NewInputError(MissingProjectIDMessage)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		metrics.RecordSubmission(string(domain.JobKindImage), "rejected")
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	prompt := domain.NormalizePrompt(project.Prompt)
	if prompt == "" {
		metrics.RecordSubmission(string(domain.JobKindImage), "rejected")
		return nil, fmt.Errorf("project %s has no prompt configured", projectID)
	}

	var warnings domain.Warnings
	trigger := domain.JobTriggerManual
	scheduleID := ""
	if !req.ManualGeneration {
		trigger = domain.JobTriggerScheduled
		scheduleID = s.resolveSchedule(ctx, projectID, &warnings)
	}

	jobID, err := s.startJob(ctx, strings.TrimSpace(req.JobID), projectID, scheduleID, trigger)
	if err != nil {
		metrics.RecordSubmission(string(domain.JobKindImage), "failed")
		return nil, err
	}
	log := s.logger.With().Str("job_id", jobID).Str("project_id", projectID).Logger()

	image, duration, err := s.generate(ctx, project, prompt, jobID, trigger, req.RequesterCountry)
	if err != nil {
		s.failJob(ctx, log, jobID, err)
		metrics.RecordSubmission(string(domain.JobKindImage), "failed")
		return nil, err
	}

	// The artifact exists at this point; bookkeeping must not depend on the
	// caller still waiting.
	writeCtx, cancel := detached(ctx)
	defer cancel()
	completedAt := s.now()
	warnings.Add("complete_job", s.jobs.Complete(writeCtx, domain.JobCompletion{
		JobID:           jobID,
		ExternalJobID:   stringValue(image.Metadata["prediction_id"]),
		ImagesGenerated: 1,
		CompletedAt:     completedAt,
	}))
	warnings.Add("touch_project", s.projects.TouchLastGeneration(writeCtx, projectID, completedAt))

	for _, w := range warnings {
		metrics.RecordWarning(w.Op)
		log.Warn().Err(w.Err).Str("op", w.Op).Msg("generation: bookkeeping write failed")
	}
	metrics.RecordSubmission(string(domain.JobKindImage), "success")
	metrics.RecordTransition(string(domain.JobKindImage), string(domain.JobStatusCompleted))
	log.Info().
		Str("image_id", image.ID).
		Dur("duration", duration).
		Msg("generation: image generated")

	return &ImageResult{Image: image, Duration: duration, JobID: jobID, Warnings: warnings}, nil
}

func (s *ImageSubmitter) resolveSchedule(ctx context.Context, projectID string, warnings *domain.Warnings) string {
	if s.schedules == nil {
		return ""
	}
	schedule, err := s.schedules.ActiveForProject(ctx, projectID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			warnings.Add("resolve_schedule", err)
		}
		return ""
	}
	return schedule.ID
}

func (s *ImageSubmitter) startJob(ctx context.Context, jobID, projectID, scheduleID string, trigger domain.JobTrigger) (string, error) {
	now := s.now()
	if jobID != "" {
		if err := s.jobs.MarkRunning(ctx, jobID, now); err != nil {
			return "", fmt.Errorf("start job %s: %w", jobID, err)
		}
		return jobID, nil
	}
	job := &domain.GenerationJob{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ScheduleID:  scheduleID,
		Kind:        domain.JobKindImage,
		Trigger:     trigger,
		Status:      domain.JobStatusRunning,
		ScheduledAt: now,
		StartedAt:   now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return job.ID, nil
}

func (s *ImageSubmitter) generate(ctx context.Context, project *domain.Project, prompt, jobID string, trigger domain.JobTrigger, country string) (*domain.GeneratedImage, time.Duration, error) {
	input := map[string]any{
		"prompt":           prompt,
		"aspect_ratio":     s.settings.AspectRatio,
		"output_format":    s.settings.OutputFormat,
		"safety_tolerance": s.settings.SafetyTolerance,
	}
	if ref := strings.TrimSpace(project.ReferenceImageURL); ref != "" {
		input["image_prompt"] = ref
	}

	callCtx := ctx
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}
	start := time.Now()
	pred, err := s.provider.Run(callCtx, replicate.CreateRequest{Version: s.settings.Version, Input: input})
	duration := time.Since(start)
	if err != nil {
		return nil, duration, providerError(err)
	}
	if pred.Status != replicate.StatusSucceeded {
		msg := pred.ErrorMessage()
		if msg == "" {
			msg = "no error reported"
		}
		return nil, duration, providerError(fmt.Errorf("prediction %s %s: %s", pred.ID, pred.Status, msg))
	}
	imageURL, err := pred.OutputString()
	if err != nil {
		return nil, duration, fmt.Errorf("%w: %w", domain.ErrUnexpectedOutput, err)
	}

	metadata := map[string]any{
		"prediction_id": pred.ID,
		"aspect_ratio":  s.settings.AspectRatio,
		"output_format": s.settings.OutputFormat,
		"trigger":       string(trigger),
	}
	if country != "" {
		metadata["requester_country"] = country
	}
	if pred.Metrics.PredictTime != nil {
		metadata["predict_time"] = *pred.Metrics.PredictTime
	}
	image := &domain.GeneratedImage{
		ID:                    uuid.NewString(),
		JobID:                 jobID,
		ProjectID:             project.ID,
		ImageURL:              imageURL,
		Prompt:                prompt,
		Model:                 s.settings.Version,
		GenerationTimeSeconds: roundSeconds(duration),
		Metadata:              metadata,
	}
	writeCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.images.Create(writeCtx, image); err != nil {
		return nil, duration, fmt.Errorf("save generated image: %w", err)
	}
	return image, duration, nil
}

func (s *ImageSubmitter) failJob(ctx context.Context, log infra.Logger, jobID string, cause error) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.jobs.Fail(ctx, jobID, cause.Error(), s.now()); err != nil {
		log.Error().Err(err).AnErr("cause", cause).Msg("generation: failed to mark job failed")
		return
	}
	metrics.RecordTransition(string(domain.JobKindImage), string(domain.JobStatusFailed))
	log.Warn().Err(cause).Msg("generation: image job failed")
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
