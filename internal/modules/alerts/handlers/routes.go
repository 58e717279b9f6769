package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all alert routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/risk/alerts", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.HandleListRules)
			r.Post("/", h.HandleCreateRule)
			r.Put("/{id}", h.HandleUpdateRule)
			r.Delete("/{id}", h.HandleDeleteRule)
		})
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.HandleListLogs)
			r.Post("/{id}/resolve", h.HandleResolveLog)
		})
	})
}
