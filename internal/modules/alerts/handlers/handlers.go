// Package handlers provides HTTP handlers for alert rule management and
// the alert log.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/riskwatch/internal/modules/alerts"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles alert HTTP requests
type Handler struct {
	repo *alerts.Repository
	log  zerolog.Logger
}

// NewHandler creates a new alerts handler
func NewHandler(repo *alerts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "alerts").Logger(),
	}
}

// HandleListRules handles GET /api/risk/alerts/rules
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.queryOwner(w, r)
	if !ok {
		return
	}

	rules, err := h.repo.ListRules(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list rules: "+err.Error())
		return
	}
	if rules == nil {
		rules = []alerts.Rule{}
	}
	h.writeJSON(w, http.StatusOK, rules)
}

// HandleCreateRule handles POST /api/risk/alerts/rules
func (h *Handler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule alerts.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if rule.OwnerID == 0 {
		h.writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	created, err := h.repo.CreateRule(r.Context(), rule)
	if err != nil {
		if errors.Is(err, alerts.ErrInvalidRule) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to create rule: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateRule handles PUT /api/risk/alerts/rules/{id}
func (h *Handler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rule id")
		return
	}

	var rule alerts.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rule.ID = ruleID
	if rule.OwnerID == 0 {
		h.writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	if err := h.repo.UpdateRule(r.Context(), rule); err != nil {
		switch {
		case errors.Is(err, alerts.ErrRuleNotFound):
			h.writeError(w, http.StatusNotFound, "Rule not found")
		case errors.Is(err, alerts.ErrInvalidRule):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to update rule: "+err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusOK, rule)
}

// HandleDeleteRule handles DELETE /api/risk/alerts/rules/{id}
func (h *Handler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.queryOwner(w, r)
	if !ok {
		return
	}
	ruleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rule id")
		return
	}

	if err := h.repo.DeleteRule(r.Context(), ownerID, ruleID); err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			h.writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to delete rule: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleListLogs handles GET /api/risk/alerts/logs
func (h *Handler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.queryOwner(w, r)
	if !ok {
		return
	}
	portfolioID, err := strconv.ParseInt(r.URL.Query().Get("portfolioId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "portfolioId is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.repo.ListLogs(r.Context(), ownerID, portfolioID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list logs: "+err.Error())
		return
	}
	if logs == nil {
		logs = []alerts.Log{}
	}
	h.writeJSON(w, http.StatusOK, logs)
}

// HandleResolveLog handles POST /api/risk/alerts/logs/{id}/resolve
func (h *Handler) HandleResolveLog(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.queryOwner(w, r)
	if !ok {
		return
	}
	logID := chi.URLParam(r, "id")

	if err := h.repo.ResolveLog(r.Context(), ownerID, logID); err != nil {
		if errors.Is(err, alerts.ErrLogNotFound) {
			h.writeError(w, http.StatusNotFound, "Alert log not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to resolve log: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

func (h *Handler) queryOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("ownerId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "ownerId is required")
		return 0, false
	}
	return ownerID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
