package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all operator endpoints. Only the run trigger mutates
// anything, so it alone sits behind bearer-token auth.
func NewRouter(h *Handler, verifier *TokenVerifier, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/discovery/report", h.handleReport)
		r.Get("/discovery/conflicts", h.handleConflicts)
		r.Get("/registry/needs-party", h.handleNeedsParty)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(verifier, logger))
			r.Post("/discovery/runs", h.handleTriggerRun)
		})
	})

	return r
}
