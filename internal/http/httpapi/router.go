package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"aicam/internal/http/handlers"
	"aicam/internal/infra"
	"aicam/internal/middleware"
)

// NewRouter mounts the control API.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute, "/v1/frame"),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/inspiration", func(r chi.Router) {
		r.Get("/", app.InspirationState)
		r.Post("/trigger", app.InspirationTrigger)
		r.Post("/focus", app.InspirationFocus)
		r.Delete("/", app.InspirationCancel)
	})

	r.Post("/v1/frame", app.IngestFrame)
	r.Put("/v1/settings", app.UpdateSettings)

	r.Route("/v1/captures", func(r chi.Router) {
		r.Get("/", app.ListCaptures)
		r.Post("/", app.CreateCapture)
		r.Get("/archive", app.ArchiveCaptures)
		r.Get("/{id}", app.GetCapture)
		r.Get("/{id}/artifacts/{kind}", app.DownloadArtifact)
		r.Post("/{id}/edit", app.GenerateEdit)
		r.Post("/{id}/video", app.GenerateVideo)
	})

	r.Get("/v1/jobs/{id}", app.GetJob)

	return r
}
