package generation

import (
	"context"
	"time"

	"genstudio/internal/infra"
)

// Every runs fn immediately and then once per interval until ctx is done.
// Errors are logged and do not stop the loop.
func Every(ctx context.Context, logger infra.Logger, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Str("loop", name).Dur("interval", interval).Msg("worker: loop started")
	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Str("loop", name).Msg("worker: iteration failed")
		}
		select {
		case <-ctx.Done():
			logger.Info().Str("loop", name).Msg("worker: loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
