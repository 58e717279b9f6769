package scheduler

import (
	"context"
	"time"

	"github.com/aristath/riskwatch/internal/modules/portfolio"
	"github.com/aristath/riskwatch/internal/modules/snapshots"
	"github.com/aristath/riskwatch/internal/riskengine"
	"github.com/rs/zerolog"
)

// monitorTimeout bounds one full monitoring tick across all owners.
const monitorTimeout = 5 * time.Minute

// MonitorJob runs the risk pipeline for every stored portfolio and
// upserts the daily monitoring status row per portfolio.
type MonitorJob struct {
	pipeline *riskengine.Pipeline
	repo     *portfolio.Repository
	results  *snapshots.Repository
	log      zerolog.Logger
}

// NewMonitorJob creates the monitoring job.
func NewMonitorJob(pipeline *riskengine.Pipeline, repo *portfolio.Repository, results *snapshots.Repository, log zerolog.Logger) *MonitorJob {
	return &MonitorJob{
		pipeline: pipeline,
		repo:     repo,
		results:  results,
		log:      log.With().Str("job", "risk_monitor").Logger(),
	}
}

// Name implements Job.
func (j *MonitorJob) Name() string { return "risk_monitor" }

// Run implements Job. A failing portfolio or owner does not stop the
// tick; every failure is logged and the rest proceed.
func (j *MonitorJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), monitorTimeout)
	defer cancel()

	owners, err := j.repo.ListOwners(ctx)
	if err != nil {
		return err
	}

	evaluated := 0
	failed := 0
	for _, owner := range owners {
		reports, err := j.pipeline.EvaluateAll(ctx, owner)
		if err != nil {
			j.log.Error().Err(err).Int64("owner_id", owner).Msg("Failed to evaluate owner portfolios")
			failed++
			continue
		}

		for _, report := range reports {
			if report.Err != nil {
				failed++
				continue
			}
			evaluated++

			alertCount := 0
			for _, evaluation := range report.Evaluations {
				if evaluation.Triggered {
					alertCount++
				}
			}

			date := report.Snapshot.CapturedAt.Format("2006-01-02")
			if err := j.results.UpsertMonitoringStatus(ctx, report.Snapshot.OwnerID, report.PortfolioID, date, report.RiskMetrics, alertCount); err != nil {
				j.log.Error().Err(err).Int64("portfolio_id", report.PortfolioID).Msg("Failed to upsert monitoring status")
			}
		}
	}

	j.log.Info().
		Int("evaluated", evaluated).
		Int("failed", failed).
		Msg("Monitoring tick completed")
	return nil
}
