package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"autostudio/internal/http/handlers"
	"autostudio/internal/infra"
	"autostudio/internal/middleware"
)

// NewRouter wires the HTTP surface. The webhook endpoint stays outside the
// authenticated group: the provider signs nothing but is only able to move
// jobs through the lifecycle engine, never to create them.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.I18N(cfg.DefaultLocale, lookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		r.Post("/v1/webhooks/provider", app.ProviderWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.AuthJWT(cfg.JWTSecret),
			middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
		)

		r.Route("/v1/transforms", func(r chi.Router) {
			r.Post("/image", app.TransformImage)
			r.Post("/image-batch", app.TransformImageBatch)
			r.Post("/photo-spin", app.TransformPhotoSpin)
			r.Post("/video-spin", app.TransformVideoSpin)
			r.Post("/video-tour", app.TransformVideoTour)
		})

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Get("/{job_id}", app.JobStatus)
			r.Get("/{job_id}/assets", app.JobAssets)
		})

		r.Get("/v1/subjects/{subject_id}/jobs", app.SubjectJobs)
	})

	return r
}
