package handlers

import (
	"encoding/json"
	"net/http"

	"aicam/internal/camera"
	"aicam/internal/infra"
	"aicam/internal/infra/credentials"
	"aicam/internal/orchestrator"
)

// App carries the handler dependencies. One instance serves the whole
// router.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Source       *camera.StaticSource
	Credentials  *credentials.Store
	Logger       infra.Logger
}

func NewApp(orc *orchestrator.Orchestrator, source *camera.StaticSource, creds *credentials.Store, logger infra.Logger) *App {
	return &App{Orchestrator: orc, Source: source, Credentials: creds, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": slug, "message": msg},
	})
}
