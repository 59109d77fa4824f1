package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"genstudio/internal/bootstrap"
	"genstudio/internal/http/handlers"
	"genstudio/internal/http/httpapi"
	"genstudio/internal/infra"
	"genstudio/internal/infra/geoip"
	"genstudio/internal/metrics"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")
	metrics.Register()

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	services, err := bootstrap.NewServices(cfg, runner, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation services")
	}

	routerOpts := httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		routerOpts.Countries = resolver
	}

	app := &handlers.App{
		Images:        services.Images,
		Videos:        services.Videos,
		Completions:   services.Completions,
		DB:            dbpool,
		WebhookSecret: cfg.WebhookSecret,
		Logger:        logger,
	}
	if cfg.WebhookURL() != "" && cfg.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET is empty, callbacks are re-fetched from the provider")
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, routerOpts))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", server.Addr()).Msg("API listening")
	// In-flight image generations may take a while; give them the write timeout.
	if err := server.Run(ctx, cfg.HTTPWriteTimeout+5*time.Second); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
