// Package handlers provides HTTP handlers for VaR calculations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/riskwatch/internal/modules/portfolio"
	"github.com/aristath/riskwatch/internal/modules/snapshots"
	"github.com/aristath/riskwatch/internal/modules/varcalc"
	"github.com/rs/zerolog"
)

// Handler handles VaR HTTP requests
type Handler struct {
	builder    *portfolio.SnapshotBuilder
	calculator *varcalc.Calculator
	results    *snapshots.Repository
	log        zerolog.Logger
}

// NewHandler creates a new VaR handler
func NewHandler(builder *portfolio.SnapshotBuilder, calculator *varcalc.Calculator, results *snapshots.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		builder:    builder,
		calculator: calculator,
		results:    results,
		log:        log.With().Str("handler", "varcalc").Logger(),
	}
}

// CalculateRequest is the body of POST /api/risk/var.
type CalculateRequest struct {
	OwnerID     int64 `json:"ownerId"`
	PortfolioID int64 `json:"portfolioId"`
	varcalc.Params
}

// HandleCalculate handles POST /api/risk/var
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var request CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.OwnerID == 0 || request.PortfolioID == 0 {
		h.writeError(w, http.StatusBadRequest, "ownerId and portfolioId are required")
		return
	}

	snapshot, err := h.builder.Build(r.Context(), request.OwnerID, request.PortfolioID)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Portfolio not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to build snapshot: "+err.Error())
		return
	}

	result, err := h.calculator.Calculate(r.Context(), snapshot, request.Params)
	if err != nil {
		switch {
		case errors.Is(err, varcalc.ErrUnknownMethod),
			errors.Is(err, varcalc.ErrInvalidConfidence):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, varcalc.ErrDegeneratePortfolio):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Calculation failed: "+err.Error())
		}
		return
	}

	if _, err := h.results.SaveVaRResult(r.Context(), request.OwnerID, result); err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", request.PortfolioID).Msg("Failed to persist VaR result")
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /api/risk/var/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("ownerId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}
	portfolioID, err := strconv.ParseInt(r.URL.Query().Get("portfolioId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "portfolioId is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.results.ListVaRHistory(r.Context(), ownerID, portfolioID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load history: "+err.Error())
		return
	}
	if records == nil {
		records = []snapshots.VaRRecord{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolioId": portfolioID,
		"results":     records,
	})
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
