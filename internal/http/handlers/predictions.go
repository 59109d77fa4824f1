package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/generation"
	"genstudio/internal/providers/replicate"
)

// ProcessCompletedPredictions runs one completion sweep on demand.
func (a *App) ProcessCompletedPredictions(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Completions.ProcessPending(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("predictions: sweep failed")
		a.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "summary": summary})
}

// PredictionWebhook applies a provider callback. When a secret is configured
// unsigned or stale deliveries are rejected; without one the body only names
// the prediction and its state is re-read from the provider.
func (a *App) PredictionWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if a.WebhookSecret != "" {
		if err := replicate.VerifyWebhook(a.WebhookSecret, r.Header, body, time.Now()); err != nil {
			a.Logger.Warn().Err(err).Msg("predictions: webhook rejected")
			a.error(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	var pred replicate.Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var (
		outcome  generation.Outcome
		warnings domain.Warnings
	)
	if a.WebhookSecret != "" {
		outcome, warnings, err = a.Completions.ApplyPrediction(r.Context(), &pred)
	} else {
		outcome, warnings, err = a.Completions.SettlePrediction(r.Context(), pred.ID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("prediction_id", pred.ID).Msg("predictions: webhook apply failed")
		a.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success":  true,
		"outcome":  outcome,
		"warnings": warnings.Strings(),
	})
}
