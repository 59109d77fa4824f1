// Package bootstrap wires configuration, the store and the provider client
// into the generation services shared by the api and worker binaries.
package bootstrap

import (
	"net/http"
	"time"

	"genstudio/internal/adapter/repo"
	"genstudio/internal/generation"
	"genstudio/internal/infra"
	"genstudio/internal/providers/replicate"
)

// Services groups the generation entry points.
type Services struct {
	Images      *generation.ImageSubmitter
	Videos      *generation.VideoSubmitter
	Completions *generation.CompletionProcessor
	Scheduler   *generation.Scheduler
}

// NewServices builds every service over sql. The provider client and the
// repositories are shared.
func NewServices(cfg *infra.Config, sql infra.SQLExecutor, logger infra.Logger) (*Services, error) {
	providerLog := logger.With().Str("provider", "replicate").Logger()
	client, err := replicate.NewClient(replicate.Options{
		APIToken:     cfg.ReplicateAPIToken,
		BaseURL:      cfg.ReplicateBaseURL,
		HTTPClient:   &http.Client{Timeout: 90 * time.Second},
		Logger:       &providerLog,
		PollInterval: cfg.ProviderPollInterval,
	})
	if err != nil {
		return nil, err
	}

	projects := repo.NewProjectRepository(sql)
	schedules := repo.NewScheduleRepository(sql)
	jobs := repo.NewJobRepository(sql)
	images := repo.NewImageRepository(sql)
	contents := repo.NewContentRepository(sql)

	imageSubmitter := generation.NewImageSubmitter(generation.ImageSubmitterOptions{
		Projects:  projects,
		Schedules: schedules,
		Jobs:      jobs,
		Images:    images,
		Provider:  client,
		Settings: generation.ImageSettings{
			Version:         cfg.ImageVersion,
			AspectRatio:     cfg.ImageAspectRatio,
			OutputFormat:    cfg.ImageOutputFormat,
			SafetyTolerance: cfg.ImageSafetyTolerance,
			Timeout:         cfg.ProviderTimeout,
		},
		Logger: logger,
	})

	return &Services{
		Images: imageSubmitter,
		Videos: generation.NewVideoSubmitter(generation.VideoSubmitterOptions{
			Jobs:     jobs,
			Contents: contents,
			Provider: client,
			Settings: generation.VideoSettings{
				StandardVersion: cfg.VideoStandardVersion,
				ProVersion:      cfg.VideoProVersion,
				WebhookURL:      cfg.WebhookURL(),
			},
			Logger: logger,
		}),
		Completions: generation.NewCompletionProcessor(generation.CompletionProcessorOptions{
			Jobs:        jobs,
			Contents:    contents,
			Predictions: client,
			Logger:      logger,
			BatchSize:   cfg.PollerBatchSize,
			Concurrency: cfg.PollerConcurrency,
			StaleAfter:  staleAfter(cfg.ProviderTimeout),
		}),
		Scheduler: generation.NewScheduler(generation.SchedulerOptions{
			Projects:  projects,
			Images:    imageSubmitter,
			Logger:    logger,
			BatchSize: cfg.SchedulerBatchSize,
		}),
	}, nil
}

// staleAfter is how long a job may stay running without a provider handle.
// It outlasts the provider call so live submissions are never reaped.
func staleAfter(providerTimeout time.Duration) time.Duration {
	if providerTimeout <= 0 {
		providerTimeout = 5 * time.Minute
	}
	return providerTimeout + 5*time.Minute
}
