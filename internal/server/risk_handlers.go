package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/modules/portfolio"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/internal/modules/riskmetrics"
	"github.com/aristath/riskwatch/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RiskHandlers serves the cross-module risk endpoints: on-demand metrics
// and the manual monitoring trigger.
type RiskHandlers struct {
	builder    *portfolio.SnapshotBuilder
	estimator  *returns.Estimator
	computer   *riskmetrics.Computer
	sched      *scheduler.Scheduler
	monitorJob scheduler.Job
	cfg        config.RiskConfig
	log        zerolog.Logger
}

// NewRiskHandlers creates the cross-module risk handlers.
func NewRiskHandlers(
	builder *portfolio.SnapshotBuilder,
	estimator *returns.Estimator,
	computer *riskmetrics.Computer,
	sched *scheduler.Scheduler,
	monitorJob scheduler.Job,
	cfg config.RiskConfig,
	log zerolog.Logger,
) *RiskHandlers {
	return &RiskHandlers{
		builder:    builder,
		estimator:  estimator,
		computer:   computer,
		sched:      sched,
		monitorJob: monitorJob,
		cfg:        cfg,
		log:        log.With().Str("handler", "risk").Logger(),
	}
}

// RegisterRoutes registers the cross-module risk routes
func (h *RiskHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/api/risk/metrics", h.HandleMetrics)
	r.Post("/api/risk/monitor", h.HandleMonitor)
}

// HandleMetrics handles GET /api/risk/metrics. It is read-only: nothing
// is persisted and no alerts are evaluated.
func (h *RiskHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
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
	lookback, _ := strconv.Atoi(r.URL.Query().Get("lookbackDays"))
	if lookback <= 0 {
		lookback = h.cfg.LookbackDays
	}

	snapshot, err := h.builder.Build(r.Context(), ownerID, portfolioID)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Portfolio not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to build snapshot: "+err.Error())
		return
	}
	if snapshot.IsDegenerate() {
		h.writeError(w, http.StatusUnprocessableEntity, "portfolio has no positions or zero value")
		return
	}

	series := h.estimator.EstimateReturns(r.Context(), snapshot.Symbols(), lookback)
	portfolioSeries := returns.PortfolioSeries(snapshot, series)
	report := h.computer.ComputeWithRolling(portfolioSeries, 30)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolioId":    portfolioID,
		"portfolioValue": snapshot.TotalValue,
		"lookbackDays":   lookback,
		"metrics":        report,
	})
}

// HandleMonitor handles POST /api/risk/monitor. It runs the monitoring
// job synchronously, outside its schedule.
func (h *RiskHandlers) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.RunNow(h.monitorJob); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Monitoring run failed: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (h *RiskHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *RiskHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
