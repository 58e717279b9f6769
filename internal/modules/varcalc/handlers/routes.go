package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all VaR routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/risk/var", func(r chi.Router) {
		r.Post("/", h.HandleCalculate)
		r.Get("/history", h.HandleHistory)
	})
}
