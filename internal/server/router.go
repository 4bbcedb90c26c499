package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polpa/costengine/internal/config"
)

// NewRouter assembles the HTTP surface: health and metrics are open, the
// prediction API sits behind bearer authentication, and the remote callback
// endpoint behind the shared webhook secret.
func NewRouter(cfg *config.Config, predictions *PredictionHandler, webhook *WebhookHandler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(cfg.Auth.JWTSecret))

		r.Post("/predictions", predictions.Create)
		r.Get("/predictions", predictions.List)
		r.Post("/predictions/train", predictions.Train)
		r.Get("/predictions/{id}", predictions.Get)
		r.Get("/models", predictions.Models)
	})

	r.Group(func(r chi.Router) {
		r.Use(WebhookAuthenticator(cfg.Auth.WebhookSecret))

		r.Post("/webhooks/ml", webhook.Receive)
	})

	return r
}
