package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"genstudio/internal/bootstrap"
	"genstudio/internal/generation"
	"genstudio/internal/infra"
	"genstudio/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	services, err := bootstrap.NewServices(cfg, runner, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation services")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return generation.Every(gctx, logger, "completions", cfg.PollerInterval, func(ctx context.Context) error {
			_, err := services.Completions.ProcessPending(ctx)
			return err
		})
	})
	if cfg.SchedulerInterval > 0 {
		g.Go(func() error {
			return generation.Every(gctx, logger, "scheduler", cfg.SchedulerInterval, func(ctx context.Context) error {
				_, err := services.Scheduler.RunOnce(ctx)
				return err
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
