package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		// Triage
		r.Post("/triage", h.SubmitTriage)
		r.Get("/triage/runs", h.ListRuns)
		r.Get("/triage/runs/{id}", h.GetRun)

		// Feedback
		r.Post("/triage/runs/{id}/feedback", h.CreateFeedback)
		r.Get("/triage/runs/{id}/feedback", h.ListFeedback)

		// Knowledge
		r.Get("/knowledge", h.ListKnowledge)
		r.Post("/knowledge/reload", h.ReloadKnowledge)
	})
}
