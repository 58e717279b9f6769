package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStore struct {
	record *domain.PortfolioRecord
	err    error
}

func (s *fixedStore) GetPortfolio(ctx context.Context, ownerID, portfolioID int64) (*domain.PortfolioRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *fixedStore) ListPortfolios(ctx context.Context, ownerID int64) ([]domain.PortfolioRecord, error) {
	if s.record == nil {
		return nil, nil
	}
	return []domain.PortfolioRecord{*s.record}, nil
}

type priceTable map[string]float64

func (p priceTable) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := p[symbol]
	if !ok {
		return 0, errors.New("no price data for symbol " + symbol)
	}
	return price, nil
}

func growthRecord() *domain.PortfolioRecord {
	return &domain.PortfolioRecord{
		ID: 1, OwnerID: 7, Name: "Growth",
		Holdings: []domain.Holding{
			{Symbol: "AAA", Name: "Alpha Inc", Sector: "technology", Quantity: 100, AverageCost: 150},
			{Symbol: "BBB", Name: "Beta Corp", Sector: "energy", Quantity: 50, AverageCost: 80},
		},
	}
}

func TestBuildSnapshotWeights(t *testing.T) {
	store := &fixedStore{record: growthRecord()}
	prices := priceTable{"AAA": 200, "BBB": 100}
	builder := NewSnapshotBuilder(store, prices, zerolog.Nop())

	snapshot, err := builder.Build(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snapshot.PortfolioID)
	assert.Equal(t, int64(7), snapshot.OwnerID)
	assert.Equal(t, 25000.0, snapshot.TotalValue)
	assert.False(t, snapshot.CapturedAt.IsZero())

	require.Len(t, snapshot.Positions, 2)
	assert.Equal(t, 20000.0, snapshot.Positions[0].MarketValue)
	assert.Equal(t, 0.8, snapshot.Positions[0].Weight)
	assert.Equal(t, 0.2, snapshot.Positions[1].Weight)
	assert.False(t, snapshot.IsDegenerate())
}

func TestBuildSnapshotMissingPriceValuesZero(t *testing.T) {
	store := &fixedStore{record: growthRecord()}
	prices := priceTable{"AAA": 200}
	builder := NewSnapshotBuilder(store, prices, zerolog.Nop())

	snapshot, err := builder.Build(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 20000.0, snapshot.TotalValue)
	require.Len(t, snapshot.Positions, 2, "unpriced positions are kept at zero value")
	assert.Equal(t, 0.0, snapshot.Positions[1].MarketValue)
	assert.Equal(t, 0.0, snapshot.Positions[1].Weight)
	assert.Equal(t, 1.0, snapshot.Positions[0].Weight)
}

func TestBuildSnapshotAllPricesMissingIsDegenerate(t *testing.T) {
	store := &fixedStore{record: growthRecord()}
	builder := NewSnapshotBuilder(store, priceTable{}, zerolog.Nop())

	snapshot, err := builder.Build(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, snapshot.IsDegenerate())
}

func TestBuildSnapshotStoreError(t *testing.T) {
	store := &fixedStore{err: ErrNotFound}
	builder := NewSnapshotBuilder(store, priceTable{}, zerolog.Nop())

	_, err := builder.Build(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildSnapshotEmptyPortfolio(t *testing.T) {
	store := &fixedStore{record: &domain.PortfolioRecord{ID: 2, OwnerID: 7, Name: "Empty"}}
	builder := NewSnapshotBuilder(store, priceTable{}, zerolog.Nop())

	snapshot, err := builder.Build(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.True(t, snapshot.IsDegenerate())
	assert.Empty(t, snapshot.Positions)
}
