// Package generation implements the lifecycle of generation jobs: submitting
// work to the provider, recording jobs and artifacts, and settling
// asynchronous predictions.
package generation

import (
	"context"
	"fmt"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/providers/replicate"
)

// ImageProvider runs a prediction to completion.
type ImageProvider interface {
	Run(ctx context.Context, req replicate.CreateRequest) (*replicate.Prediction, error)
}

// VideoProvider starts a prediction without waiting for it.
type VideoProvider interface {
	CreatePrediction(ctx context.Context, req replicate.CreateRequest) (*replicate.Prediction, error)
}

// PredictionSource looks up the current state of a prediction.
type PredictionSource interface {
	GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error)
}

// bookkeepingTimeout bounds best-effort writes that run after the request
// context may already be gone.
const bookkeepingTimeout = 10 * time.Second

func providerError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
}

func systemClock() time.Time { return time.Now().UTC() }

// detached returns a context that survives cancellation of parent.
func detached(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), bookkeepingTimeout)
}
