// Package server provides the HTTP server and routing for the risk
// engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/database"
	alertshandlers "github.com/aristath/riskwatch/internal/modules/alerts/handlers"
	stresshandlers "github.com/aristath/riskwatch/internal/modules/stress/handlers"
	varhandlers "github.com/aristath/riskwatch/internal/modules/varcalc/handlers"
	"github.com/aristath/riskwatch/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Cfg         *config.Config
	PortfolioDB *database.DB
	HistoryDB   *database.DB
	RiskDB      *database.DB

	VaRHandler    *varhandlers.Handler
	StressHandler *stresshandlers.Handler
	AlertsHandler *alertshandlers.Handler
	RiskHandlers  *RiskHandlers

	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Scheduler,
			cfg.PortfolioDB, cfg.HistoryDB, cfg.RiskDB),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if devMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.cfg.VaRHandler.RegisterRoutes(s.router)
	s.cfg.StressHandler.RegisterRoutes(s.router)
	s.cfg.AlertsHandler.RegisterRoutes(s.router)
	s.cfg.RiskHandlers.RegisterRoutes(s.router)
	s.systemHandlers.RegisterRoutes(s.router)
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router, used by tests.
func (s *Server) Router() chi.Router {
	return s.router
}
