package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/riskwatch/internal/database"
	"github.com/aristath/riskwatch/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	sched       *scheduler.Scheduler
	databases   []*database.DB
}

// NewSystemHandlers creates system handlers over the given databases.
func NewSystemHandlers(log zerolog.Logger, sched *scheduler.Scheduler, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now().UTC(),
		sched:       sched,
		databases:   databases,
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/api/system/health", h.HandleHealth)
}

type databaseHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HandleHealth handles GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := true

	databases := make([]databaseHealth, 0, len(h.databases))
	for _, db := range h.databases {
		status := databaseHealth{Name: db.Name(), Healthy: true}
		if err := db.Conn().PingContext(r.Context()); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			healthy = false
		}
		databases = append(databases, status)
	}

	response := map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(h.startupTime).Round(time.Second).String(),
		"databases": databases,
		"runtime": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
	}
	if !healthy {
		response["status"] = "degraded"
	}
	if h.sched != nil {
		response["jobs"] = h.sched.Jobs()
	}

	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		response["cpu_percent"] = percent[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory"] = map[string]interface{}{
			"used_percent": vm.UsedPercent,
			"total_mb":     vm.Total / 1024 / 1024,
			"used_mb":      vm.Used / 1024 / 1024,
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}
