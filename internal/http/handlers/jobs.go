package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aicam/internal/domain"
)

type jobResponse struct {
	ID           string    `json:"id"`
	CaptureID    string    `json:"capture_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Provider     string    `json:"provider"`
	ArtifactKey  string    `json:"artifact_key,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toJobResponse(job *domain.GenerationJob) jobResponse {
	return jobResponse{
		ID:           job.ID,
		CaptureID:    job.CaptureID,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Provider:     job.Provider,
		ArtifactKey:  job.ArtifactKey,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// GetJob returns one generation job.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orchestrator.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}
