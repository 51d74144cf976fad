// Package api serves health, metrics and the live scored-event stream.
package api

import (
	"net/http"

	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Bus            *event.Bus[event.Scored]
	Metrics        *metrics.Registry
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

func NewRouter(options Options) http.Handler {
	logger := options.Logger.With(map[string]string{logging.CategoryKey: "api"})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware(cacheControlNoStore))

	router.Get("/healthz", handleHealth)
	router.Handle("/metrics", options.Metrics.Handler())
	router.Method(http.MethodGet, "/events", eventsHandler{
		bus:            options.Bus,
		logger:         logger,
		authToken:      options.AuthToken,
		allowedOrigins: options.AllowedOrigins,
	})
	return router
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
