// Command server runs the portfolio risk analytics engine: the HTTP API,
// the scheduled monitoring job, and the SQLite-backed result stores.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/riskwatch/internal/clientdata"
	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/database"
	"github.com/aristath/riskwatch/internal/history"
	"github.com/aristath/riskwatch/internal/modules/alerts"
	alertshandlers "github.com/aristath/riskwatch/internal/modules/alerts/handlers"
	"github.com/aristath/riskwatch/internal/modules/portfolio"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/internal/modules/riskmetrics"
	"github.com/aristath/riskwatch/internal/modules/snapshots"
	"github.com/aristath/riskwatch/internal/modules/stress"
	stresshandlers "github.com/aristath/riskwatch/internal/modules/stress/handlers"
	"github.com/aristath/riskwatch/internal/modules/varcalc"
	varhandlers "github.com/aristath/riskwatch/internal/modules/varcalc/handlers"
	"github.com/aristath/riskwatch/internal/riskengine"
	"github.com/aristath/riskwatch/internal/scheduler"
	"github.com/aristath/riskwatch/internal/server"
	"github.com/aristath/riskwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		println("failed to load configuration:", err.Error())
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting riskwatch")

	portfolioDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	riskDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("risk.db"),
		Profile: database.ProfileLedger,
		Name:    "risk",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open risk database")
	}
	defer riskDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, s := range []struct {
		db     *database.DB
		schema string
	}{
		{portfolioDB, database.PortfolioSchema},
		{historyDB, database.HistorySchema},
		{riskDB, database.RiskSchema},
		{cacheDB, database.CacheSchema},
	} {
		if err := s.db.EnsureSchema(s.schema); err != nil {
			log.Fatal().Err(err).Str("db", s.db.Name()).Msg("Failed to apply schema")
		}
	}

	// data access
	historyStore := history.New(historyDB.Conn(), log)
	cache := clientdata.NewRepository(cacheDB.Conn())
	priceProvider := clientdata.NewCachedPriceProvider(historyStore, cache, log)
	historyProvider := clientdata.NewCachedHistoryProvider(historyStore, cache, log)
	portfolioRepo := portfolio.NewRepository(portfolioDB.Conn(), log)

	// risk modules
	builder := portfolio.NewSnapshotBuilder(portfolioRepo, priceProvider, log)
	estimator := returns.NewEstimator(historyProvider, log)
	calculator := varcalc.NewCalculator(estimator, cfg.Risk, log)
	tester := stress.NewTester(historyProvider, estimator, cfg.Risk, log)
	computer := riskmetrics.NewComputer(cfg.Risk.RiskFreeRate, log)
	alertRepo := alerts.NewRepository(riskDB.Conn(), log)
	alertEngine := alerts.NewEngine(alertRepo, nil, log)
	resultRepo := snapshots.NewRepository(riskDB.Conn(), log)

	pipeline := riskengine.NewPipeline(builder, estimator, calculator, computer,
		alertEngine, resultRepo, portfolioRepo, cfg.Risk, log)

	// scheduled monitoring
	sched := scheduler.New(log)
	monitorJob := scheduler.NewMonitorJob(pipeline, portfolioRepo, resultRepo, log)
	if err := sched.AddJob(cfg.MonitorSchedule, monitorJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register monitoring job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:           log,
		Cfg:           cfg,
		PortfolioDB:   portfolioDB,
		HistoryDB:     historyDB,
		RiskDB:        riskDB,
		VaRHandler:    varhandlers.NewHandler(builder, calculator, resultRepo, log),
		StressHandler: stresshandlers.NewHandler(builder, tester, resultRepo, log),
		AlertsHandler: alertshandlers.NewHandler(alertRepo, log),
		RiskHandlers: server.NewRiskHandlers(builder, estimator, computer,
			sched, monitorJob, cfg.Risk, log),
		Scheduler: sched,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
