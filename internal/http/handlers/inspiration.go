package handlers

import (
	"encoding/json"
	"net/http"

	"aicam/internal/camera"
	"aicam/internal/persona"
)

type triggerRequest struct {
	Persona string `json:"persona"`
}

type focusRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type settingsRequest struct {
	AutoInspiration *bool `json:"auto_inspiration"`
}

// InspirationState returns the current state snapshot.
func (a *App) InspirationState(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Orchestrator.InspirationState())
}

// InspirationTrigger starts a new run, optionally switching persona.
func (a *App) InspirationTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	if req.Persona != "" {
		if err := a.Orchestrator.SetPersona(persona.Persona(req.Persona)); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown persona")
			return
		}
	} else {
		a.Orchestrator.TriggerInspiration()
	}
	a.json(w, http.StatusAccepted, a.Orchestrator.InspirationState())
}

// InspirationFocus focuses at a normalized point and reruns the analysis.
func (a *App) InspirationFocus(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.X < 0 || req.X > 1 || req.Y < 0 || req.Y > 1 {
		a.error(w, http.StatusBadRequest, "bad_request", "focus point must be normalized to 0..1")
		return
	}
	a.Orchestrator.TriggerInspirationFocus(camera.FocusPoint{X: req.X, Y: req.Y})
	a.json(w, http.StatusAccepted, a.Orchestrator.InspirationState())
}

// InspirationCancel halts the live run.
func (a *App) InspirationCancel(w http.ResponseWriter, r *http.Request) {
	a.Orchestrator.CancelInspiration()
	a.json(w, http.StatusOK, a.Orchestrator.InspirationState())
}

// UpdateSettings toggles runtime behavior, currently auto-inspiration.
func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.AutoInspiration != nil {
		a.Orchestrator.SetAutoInspiration(*req.AutoInspiration)
	}
	a.json(w, http.StatusOK, map[string]any{
		"auto_inspiration": a.Orchestrator.AutoInspiration(),
		"persona":          string(a.Orchestrator.Persona()),
	})
}
