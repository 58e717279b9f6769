package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all stress testing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/risk/stress", func(r chi.Router) {
		r.Post("/", h.HandleRun)
		r.Get("/history", h.HandleHistory)
	})
}
