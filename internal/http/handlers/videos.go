package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/generation"
)

type videoGenerateResponse struct {
	Success      bool   `json:"success"`
	PredictionID string `json:"prediction_id"`
	ContentID    string `json:"content_id"`
}

// GenerateVideo starts a video prediction. Errors are plain text.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generation.VideoRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	res, err := a.Videos.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.Logger.Error().Err(err).Str("job_id", req.JobID).Msg("videos: submission failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.json(w, http.StatusOK, videoGenerateResponse{
		Success:      true,
		PredictionID: res.PredictionID,
		ContentID:    res.ContentID,
	})
}
