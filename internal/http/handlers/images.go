package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/generation"
	"genstudio/internal/middleware"
)

const maxBodyBytes = 1 << 20

type imageGenerateRequest struct {
	ProjectID        string `json:"project_id"`
	ManualGeneration bool   `json:"manual_generation"`
	JobID            string `json:"job_id"`
}

type imageGenerateResponse struct {
	Success               bool                   `json:"success"`
	Image                 *domain.GeneratedImage `json:"image"`
	GenerationTimeSeconds float64                `json:"generation_time_seconds"`
	JobID                 string                 `json:"job_id"`
	Warnings              []string               `json:"warnings,omitempty"`
}

// GenerateImage runs one image generation for a project and answers once the
// artifact is stored.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := a.Images.Submit(r.Context(), generation.ImageRequest{
		ProjectID:        req.ProjectID,
		JobID:            req.JobID,
		ManualGeneration: req.ManualGeneration,
		RequesterCountry: middleware.CountryFromContext(r.Context()),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("project_id", req.ProjectID).Msg("images: generation failed")
		a.fail(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.json(w, http.StatusOK, imageGenerateResponse{
		Success:               true,
		Image:                 res.Image,
		GenerationTimeSeconds: res.Image.GenerationTimeSeconds,
		JobID:                 res.JobID,
		Warnings:              res.Warnings.Strings(),
	})
}
