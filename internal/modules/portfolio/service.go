package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotBuilder constructs immutable portfolio snapshots from stored
// holdings and live prices. Every risk computation starts here.
type SnapshotBuilder struct {
	store  domain.PortfolioStore
	prices domain.CurrentPriceProvider
	log    zerolog.Logger
}

// NewSnapshotBuilder creates a new snapshot builder.
func NewSnapshotBuilder(store domain.PortfolioStore, prices domain.CurrentPriceProvider, log zerolog.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		store:  store,
		prices: prices,
		log:    log.With().Str("service", "snapshot").Logger(),
	}
}

// Build captures a point-in-time snapshot of a portfolio. A position whose
// price cannot be resolved is valued at zero (and logged) rather than
// failing the snapshot; an all-zero portfolio is returned as degenerate
// and short-circuited by callers.
func (b *SnapshotBuilder) Build(ctx context.Context, ownerID, portfolioID int64) (domain.PortfolioSnapshot, error) {
	record, err := b.store.GetPortfolio(ctx, ownerID, portfolioID)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("failed to load portfolio %d: %w", portfolioID, err)
	}

	return b.BuildFromRecord(ctx, *record), nil
}

// BuildFromRecord prices a stored portfolio record into a snapshot.
func (b *SnapshotBuilder) BuildFromRecord(ctx context.Context, record domain.PortfolioRecord) domain.PortfolioSnapshot {
	snapshot := domain.PortfolioSnapshot{
		PortfolioID: record.ID,
		OwnerID:     record.OwnerID,
		Name:        record.Name,
		CapturedAt:  time.Now().UTC(),
	}

	for _, h := range record.Holdings {
		price, err := b.prices.GetCurrentPrice(ctx, h.Symbol)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to get current price")
			price = 0
		}

		marketValue := float64(h.Quantity) * price
		snapshot.Positions = append(snapshot.Positions, domain.Position{
			Symbol:       h.Symbol,
			Name:         h.Name,
			Sector:       h.Sector,
			Quantity:     h.Quantity,
			AverageCost:  h.AverageCost,
			CurrentPrice: price,
			MarketValue:  marketValue,
		})
		snapshot.TotalValue += marketValue
	}

	if snapshot.TotalValue > 0 {
		for i := range snapshot.Positions {
			snapshot.Positions[i].Weight = snapshot.Positions[i].MarketValue / snapshot.TotalValue
		}
	}

	return snapshot
}
