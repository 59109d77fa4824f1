package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/metrics"
	"genstudio/internal/providers/replicate"
)

// MissingVideoFieldsMessage is returned verbatim to clients.
const MissingVideoFieldsMessage = "Missing required fields"

const (
	VideoModeStandard = "standard"
	VideoModePro      = "pro"
)

// VideoSettings selects the provider model per mode.
type VideoSettings struct {
	StandardVersion string
	ProVersion      string
	// WebhookURL, when set, is registered for completion callbacks.
	WebhookURL string
}

// VideoSubmitterOptions wires a VideoSubmitter.
type VideoSubmitterOptions struct {
	Jobs     domain.JobRepository
	Contents domain.ContentRepository
	Provider VideoProvider
	Settings VideoSettings
	Logger   infra.Logger
	Clock    func() time.Time
}

// VideoSubmitter starts an asynchronous video prediction for a pre-created job.
type VideoSubmitter struct {
	jobs     domain.JobRepository
	contents domain.ContentRepository
	provider VideoProvider
	settings VideoSettings
	logger   infra.Logger
	now      func() time.Time
}

func NewVideoSubmitter(opts VideoSubmitterOptions) *VideoSubmitter {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock
	}
	return &VideoSubmitter{
		jobs:     opts.Jobs,
		contents: opts.Contents,
		provider: opts.Provider,
		settings: opts.Settings,
		logger:   opts.Logger,
		now:      clock,
	}
}

// VideoRequest is the inbound video submission.
type VideoRequest struct {
	ScheduleID     string `json:"schedule_id"`
	JobID          string `json:"job_id"`
	Prompt         string `json:"prompt"`
	StartImage     string `json:"start_image"`
	UserID         string `json:"user_id"`
	TaskID         string `json:"task_id"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Duration       int    `json:"duration,omitempty"`
}

// Validate checks required fields and normalizes mode and duration defaults.
func (r *VideoRequest) Validate() error {
	for _, v := range []*string{&r.ScheduleID, &r.JobID, &r.Prompt, &r.StartImage, &r.UserID, &r.TaskID} {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			return domain.NewInputError(MissingVideoFieldsMessage)
		}
	}
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	switch r.Mode {
	case "":
		r.Mode = VideoModeStandard
	case VideoModeStandard, VideoModePro:
	default:
		return domain.NewInputError("mode must be one of standard, pro")
	}
	switch r.Duration {
	case 0:
		r.Duration = 5
	case 5, 10:
	default:
		return domain.NewInputError("duration must be 5 or 10")
	}
	return nil
}

// VideoResult identifies the started prediction and its placeholder content row.
type VideoResult struct {
	PredictionID string
	ContentID    string
	JobID        string
}

// Submit creates the prediction and records the job and content rows in
// processing. It never waits for the provider to finish.
func (s *VideoSubmitter) Submit(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordSubmission(string(domain.JobKindVideo), "rejected")
		return nil, err
	}
	log := s.logger.With().Str("job_id", req.JobID).Str("task_id", req.TaskID).Logger()

	result, err := s.submit(ctx, req)
	if err != nil {
		s.failJob(ctx, log, req.JobID, err)
		metrics.RecordSubmission(string(domain.JobKindVideo), "failed")
		return nil, err
	}
	metrics.RecordSubmission(string(domain.JobKindVideo), "success")
	log.Info().
		Str("prediction_id", result.PredictionID).
		Str("content_id", result.ContentID).
		Msg("generation: video prediction started")
	return result, nil
}

func (s *VideoSubmitter) submit(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	version := s.settings.StandardVersion
	if req.Mode == VideoModePro {
		version = s.settings.ProVersion
	}
	prompt := domain.NormalizePrompt(req.Prompt)
	input := map[string]any{
		"prompt":      prompt,
		"start_image": req.StartImage,
		"duration":    req.Duration,
	}
	if neg := domain.NormalizePrompt(req.NegativePrompt); neg != "" {
		input["negative_prompt"] = neg
	}
	create := replicate.CreateRequest{Version: version, Input: input}
	if s.settings.WebhookURL != "" {
		create.Webhook = s.settings.WebhookURL
		create.WebhookEvents = []string{"completed"}
	}

	pred, err := s.provider.CreatePrediction(ctx, create)
	if err != nil {
		return nil, providerError(err)
	}
	if pred.ID == "" {
		return nil, providerError(fmt.Errorf("prediction created without id"))
	}

	writeCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.jobs.MarkProcessing(writeCtx, req.JobID, pred.ID, s.now()); err != nil {
		return nil, fmt.Errorf("mark job %s processing: %w", req.JobID, err)
	}
	metadata := map[string]any{
		"prediction_id": pred.ID,
		"task_id":       req.TaskID,
		"mode":          req.Mode,
		"duration":      req.Duration,
		"start_image":   req.StartImage,
	}
	if neg, ok := input["negative_prompt"]; ok {
		metadata["negative_prompt"] = neg
	}
	content := &domain.GeneratedContent{
		ID:          uuid.NewString(),
		JobID:       req.JobID,
		ScheduleID:  req.ScheduleID,
		UserID:      req.UserID,
		TaskID:      req.TaskID,
		ContentType: domain.JobKindVideo,
		Status:      domain.ContentStatusProcessing,
		Prompt:      prompt,
		Model:       version,
		Metadata:    metadata,
	}
	if err := s.contents.Create(writeCtx, content); err != nil {
		return nil, fmt.Errorf("save generated content: %w", err)
	}
	return &VideoResult{PredictionID: pred.ID, ContentID: content.ID, JobID: req.JobID}, nil
}

func (s *VideoSubmitter) failJob(ctx context.Context, log infra.Logger, jobID string, cause error) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.jobs.Fail(ctx, jobID, cause.Error(), s.now()); err != nil {
		log.Error().Err(err).AnErr("cause", cause).Msg("generation: failed to mark job failed")
		return
	}
	metrics.RecordTransition(string(domain.JobKindVideo), string(domain.JobStatusFailed))
	log.Warn().Err(cause).Msg("generation: video job failed")
}
