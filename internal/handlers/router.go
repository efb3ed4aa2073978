package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Brownie44l1/cancer-api/internal/metrics"
)

func NewRouter(h *Handler, allowedOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware(allowedOrigin))

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/predict", h.Predict)
	r.Get("/predict/histories", h.Histories)

	return r
}
