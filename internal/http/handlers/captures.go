package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aicam/internal/domain"
	"aicam/pkg/zip"
)

// Frames larger than this are rejected before buffering.
const maxFrameBytes = 16 << 20

type captureResponse struct {
	ID              string    `json:"id"`
	ImageKey        string    `json:"image_key"`
	EditedImageKey  string    `json:"edited_image_key,omitempty"`
	VideoKey        string    `json:"video_key,omitempty"`
	InspirationText string    `json:"inspiration_text,omitempty"`
	Persona         string    `json:"persona,omitempty"`
	VideoScript     string    `json:"video_script,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toCaptureResponse(c domain.Capture) captureResponse {
	return captureResponse{
		ID:              c.ID,
		ImageKey:        c.ImageKey,
		EditedImageKey:  c.EditedImageKey,
		VideoKey:        c.VideoKey,
		InspirationText: c.InspirationText,
		Persona:         c.Persona,
		VideoScript:     c.VideoScript,
		CreatedAt:       c.CreatedAt,
	}
}

// IngestFrame replaces the live frame with the raw image body. This is
// how a client without local camera plumbing feeds the source.
func (a *App) IngestFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read frame body")
		return
	}
	if len(frame) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "frame body is empty")
		return
	}
	if len(frame) > maxFrameBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "frame exceeds size limit")
		return
	}
	a.Source.SetFrame(frame)
	a.json(w, http.StatusAccepted, map[string]any{"bytes": len(frame)})
}

// CreateCapture freezes the current frame into a capture record.
func (a *App) CreateCapture(w http.ResponseWriter, r *http.Request) {
	capture, err := a.Orchestrator.CapturePhoto(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoFrame) {
			a.error(w, http.StatusConflict, "no_frame", "no frame available yet")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: capture failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create capture")
		return
	}
	a.json(w, http.StatusCreated, toCaptureResponse(*capture))
}

// ListCaptures returns the newest captures.
func (a *App) ListCaptures(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	captures, err := a.Orchestrator.ListCaptures(r.Context(), limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load captures")
		return
	}
	items := make([]captureResponse, 0, len(captures))
	for _, c := range captures {
		items = append(items, toCaptureResponse(c))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// GetCapture returns one capture record.
func (a *App) GetCapture(w http.ResponseWriter, r *http.Request) {
	capture, err := a.Orchestrator.GetCapture(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "capture not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load capture")
		return
	}
	a.json(w, http.StatusOK, toCaptureResponse(*capture))
}

// GenerateEdit produces the stylized still for a capture. The provider
// call completes within the request.
func (a *App) GenerateEdit(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orchestrator.GenerateEditedImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "capture not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: image edit failed")
		a.error(w, http.StatusBadGateway, "provider_error", "image generation failed")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// GenerateVideo submits the capture for animation and returns the
// polling job.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orchestrator.GenerateVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "capture not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: video submit failed")
		a.error(w, http.StatusBadGateway, "provider_error", "video generation failed")
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

// DownloadArtifact streams a stored artifact by capture id and kind.
func (a *App) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	capture, err := a.Orchestrator.GetCapture(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "capture not found")
		return
	}
	key, mime := artifactFor(capture, chi.URLParam(r, "kind"))
	if key == "" {
		a.error(w, http.StatusNotFound, "not_found", "artifact not available")
		return
	}
	data, err := a.Orchestrator.ReadArtifact(r.Context(), key)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to read artifact")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ArchiveCaptures bundles every stored artifact into a zip download.
func (a *App) ArchiveCaptures(w http.ResponseWriter, r *http.Request) {
	captures, err := a.Orchestrator.ListCaptures(r.Context(), 200)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load captures")
		return
	}
	var assets []zip.Asset
	for _, c := range captures {
		for _, kind := range []string{"original", "edited", "video"} {
			key, mime := artifactFor(&c, kind)
			if key == "" {
				continue
			}
			data, err := a.Orchestrator.ReadArtifact(r.Context(), key)
			if err != nil {
				continue
			}
			assets = append(assets, zip.Asset{Filename: key, MIME: mime, Data: data})
		}
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no artifacts to archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="captures.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(zip.ArchiveAssets(assets))
}

func artifactFor(c *domain.Capture, kind string) (key, mime string) {
	switch kind {
	case "original":
		return c.ImageKey, "image/jpeg"
	case "edited":
		return c.EditedImageKey, "image/jpeg"
	case "video":
		return c.VideoKey, "video/mp4"
	}
	return "", ""
}
