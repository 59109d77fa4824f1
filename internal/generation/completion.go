package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/metrics"
	"genstudio/internal/providers/replicate"
)

// Outcome describes what applying a prediction did to its job.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomePending means the provider has not settled the prediction yet.
	OutcomePending Outcome = "pending"
	// OutcomeSkipped means the job was already terminal; another delivery
	// or sweep settled it first.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnknown means no job carries the prediction id.
	OutcomeUnknown Outcome = "unknown"
)

const staleJobMessage = "generation abandoned: no provider result before timeout"

// Summary aggregates one sweep.
type Summary struct {
	Checked   int      `json:"checked"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Pending   int      `json:"pending"`
	Skipped   int      `json:"skipped"`
	Reaped    int      `json:"reaped"`
	Errors    int      `json:"errors"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (s *Summary) count(o Outcome) {
	switch o {
	case OutcomeCompleted:
		s.Completed++
	case OutcomeFailed:
		s.Failed++
	case OutcomePending:
		s.Pending++
	case OutcomeSkipped, OutcomeUnknown:
		s.Skipped++
	}
}

// CompletionProcessorOptions wires a CompletionProcessor.
type CompletionProcessorOptions struct {
	Jobs        domain.JobRepository
	Contents    domain.ContentRepository
	Predictions PredictionSource
	Logger      infra.Logger
	BatchSize   int
	Concurrency int
	// StaleAfter fails running jobs that have no provider handle and started
	// longer ago than this. Zero disables reaping.
	StaleAfter time.Duration
	Clock      func() time.Time
}

// CompletionProcessor settles jobs whose provider prediction has finished.
//
// Each job and content row is finalised at most once per prediction: the
// store writes only match rows that are not yet terminal, so concurrent
// sweeps and repeated webhook deliveries race harmlessly and the loser
// reports OutcomeSkipped. The content row is settled before the job so that
// a failure between the two writes is retried on the next sweep.
type CompletionProcessor struct {
	jobs        domain.JobRepository
	contents    domain.ContentRepository
	predictions PredictionSource
	logger      infra.Logger
	batchSize   int
	concurrency int
	staleAfter  time.Duration
	now         func() time.Time
}

func NewCompletionProcessor(opts CompletionProcessorOptions) *CompletionProcessor {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 50
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &CompletionProcessor{
		jobs:        opts.Jobs,
		contents:    opts.Contents,
		predictions: opts.Predictions,
		logger:      opts.Logger,
		batchSize:   batch,
		concurrency: concurrency,
		staleAfter:  opts.StaleAfter,
		now:         clock,
	}
}

// ProcessPending reaps abandoned jobs, then polls the provider for every
// pending job in one batch. Per-job failures are counted in the summary;
// only listing errors abort.
func (p *CompletionProcessor) ProcessPending(ctx context.Context) (Summary, error) {
	var summary Summary
	summary.Reaped = p.reap(ctx)

	jobs, err := p.jobs.ListPending(ctx, p.batchSize)
	if err != nil {
		return summary, fmt.Errorf("list pending jobs: %w", err)
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for _, job := range jobs {
		eg.Go(func() error {
			outcome, warnings, err := p.check(egCtx, job)
			mu.Lock()
			defer mu.Unlock()
			summary.Checked++
			summary.Warnings = append(summary.Warnings, warnings.Strings()...)
			if err != nil {
				summary.Errors++
				p.logger.Error().Err(err).Str("job_id", job.ID).Msg("completion: job check failed")
				return nil
			}
			summary.count(outcome)
			return nil
		})
	}
	_ = eg.Wait()

	p.logger.Info().
		Int("checked", summary.Checked).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("pending", summary.Pending).
		Int("errors", summary.Errors).
		Int("reaped", summary.Reaped).
		Msg("completion: sweep finished")
	return summary, nil
}

// reap fails jobs left running by a submitter that died before the provider
// answered. Such rows never gain a handle, so the sweep cannot settle them.
func (p *CompletionProcessor) reap(ctx context.Context) int {
	if p.staleAfter <= 0 {
		return 0
	}
	now := p.now()
	jobs, err := p.jobs.FailStale(ctx, now.Add(-p.staleAfter), staleJobMessage, now)
	if err != nil {
		p.logger.Error().Err(err).Msg("completion: reaping stale jobs failed")
		return 0
	}
	for _, job := range jobs {
		metrics.RecordTransition(string(job.Kind), string(domain.JobStatusFailed))
		p.logger.Warn().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("completion: stale running job failed")
	}
	return len(jobs)
}

func (p *CompletionProcessor) check(ctx context.Context, job domain.GenerationJob) (Outcome, domain.Warnings, error) {
	pred, err := p.predictions.GetPrediction(ctx, job.ExternalJobID)
	if err != nil {
		return "", nil, providerError(err)
	}
	return p.apply(ctx, job, pred)
}

// ApplyPrediction settles the job correlated with pred, typically from a
// provider callback.
func (p *CompletionProcessor) ApplyPrediction(ctx context.Context, pred *replicate.Prediction) (Outcome, domain.Warnings, error) {
	if pred == nil || pred.ID == "" {
		return "", nil, domain.NewInputError("prediction id is required")
	}
	job, err := p.jobs.GetByExternalID(ctx, pred.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn().Str("prediction_id", pred.ID).Msg("completion: no job for prediction")
			return OutcomeUnknown, nil, nil
		}
		return "", nil, err
	}
	return p.apply(ctx, *job, pred)
}

// SettlePrediction settles the job correlated with predictionID using the
// provider's own copy of the prediction. It serves callbacks whose body
// cannot be authenticated.
func (p *CompletionProcessor) SettlePrediction(ctx context.Context, predictionID string) (Outcome, domain.Warnings, error) {
	if predictionID == "" {
		return "", nil, domain.NewInputError("prediction id is required")
	}
	job, err := p.jobs.GetByExternalID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn().Str("prediction_id", predictionID).Msg("completion: no job for prediction")
			return OutcomeUnknown, nil, nil
		}
		return "", nil, err
	}
	if job.Status.IsTerminal() {
		return OutcomeSkipped, nil, nil
	}
	return p.check(ctx, *job)
}

func (p *CompletionProcessor) apply(ctx context.Context, job domain.GenerationJob, pred *replicate.Prediction) (Outcome, domain.Warnings, error) {
	if job.Status.IsTerminal() {
		return OutcomeSkipped, nil, nil
	}
	if !pred.Status.Terminal() {
		return OutcomePending, nil, nil
	}

	log := p.logger.With().Str("job_id", job.ID).Str("prediction_id", pred.ID).Logger()
	now := p.now()

	if pred.Status == replicate.StatusSucceeded {
		url, err := pred.OutputURL()
		if err == nil {
			return p.complete(ctx, log, job, pred, url, now)
		}
		return p.fail(ctx, log, job, err.Error(), now)
	}

	msg := pred.ErrorMessage()
	if msg == "" {
		msg = fmt.Sprintf("prediction %s", pred.Status)
	}
	return p.fail(ctx, log, job, msg, now)
}

func (p *CompletionProcessor) complete(ctx context.Context, log infra.Logger, job domain.GenerationJob, pred *replicate.Prediction, url string, now time.Time) (Outcome, domain.Warnings, error) {
	var warnings domain.Warnings
	if err := p.contents.CompleteByJob(ctx, job.ID, url, pred.Metrics.PredictTime, now); err != nil {
		if !errors.Is(err, domain.ErrAlreadyFinal) {
			return "", nil, err
		}
		warnings.Add("complete_content", err)
	}
	err := p.jobs.Complete(ctx, domain.JobCompletion{
		JobID:           job.ID,
		ExternalJobID:   pred.ID,
		ImagesGenerated: 1,
		CompletedAt:     now,
	})
	if errors.Is(err, domain.ErrAlreadyFinal) {
		return OutcomeSkipped, nil, nil
	}
	if err != nil {
		return "", warnings, err
	}
	p.report(log, job, domain.JobStatusCompleted, warnings)
	return OutcomeCompleted, warnings, nil
}

func (p *CompletionProcessor) fail(ctx context.Context, log infra.Logger, job domain.GenerationJob, msg string, now time.Time) (Outcome, domain.Warnings, error) {
	var warnings domain.Warnings
	if err := p.contents.FailByJob(ctx, job.ID, msg, now); err != nil {
		if !errors.Is(err, domain.ErrAlreadyFinal) {
			return "", nil, err
		}
		warnings.Add("fail_content", err)
	}
	err := p.jobs.Fail(ctx, job.ID, msg, now)
	if errors.Is(err, domain.ErrAlreadyFinal) {
		return OutcomeSkipped, nil, nil
	}
	if err != nil {
		return "", warnings, err
	}
	p.report(log, job, domain.JobStatusFailed, warnings)
	return OutcomeFailed, warnings, nil
}

func (p *CompletionProcessor) report(log infra.Logger, job domain.GenerationJob, status domain.JobStatus, warnings domain.Warnings) {
	kind := string(job.Kind)
	if kind == "" {
		kind = string(domain.JobKindVideo)
	}
	metrics.RecordTransition(kind, string(status))
	for _, w := range warnings {
		metrics.RecordWarning(w.Op)
		log.Warn().Err(w.Err).Str("op", w.Op).Msg("completion: bookkeeping write failed")
	}
	log.Info().Str("status", string(status)).Msg("completion: job settled")
}
