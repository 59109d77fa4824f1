package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/generation"
	"genstudio/internal/infra"
	"genstudio/internal/providers/replicate"
)

// ImageService runs synchronous image generations.
type ImageService interface {
	Submit(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error)
}

// VideoService starts asynchronous video generations.
type VideoService interface {
	Submit(ctx context.Context, req generation.VideoRequest) (*generation.VideoResult, error)
}

// CompletionService settles asynchronous predictions.
type CompletionService interface {
	ProcessPending(ctx context.Context) (generation.Summary, error)
	ApplyPrediction(ctx context.Context, pred *replicate.Prediction) (generation.Outcome, domain.Warnings, error)
	SettlePrediction(ctx context.Context, predictionID string) (generation.Outcome, domain.Warnings, error)
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the handler dependencies. Every field is supplied by the caller;
// handlers never read process configuration.
type App struct {
	Images        ImageService
	Videos        VideoService
	Completions   CompletionService
	DB            Pinger
	WebhookSecret string
	Logger        infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes {"error": msg}.
func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]any{"error": msg})
}

// fail writes {"error": msg, "success": false}.
func (a *App) fail(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]any{"error": msg, "success": false})
}
