package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"datasetprep/internal/middleware"
)

func (h *Handler) RegisterRoutes(r chi.Router, limiter *middleware.RateLimiter) {
	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/normalize", h.Normalize)
		r.Post("/predict", h.Predict)
	})
}

// Router returns the service router with request IDs, panic recovery and
// access logging applied.
func (h *Handler) Router(limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(h.logger))
	h.RegisterRoutes(r, limiter)
	return r
}
