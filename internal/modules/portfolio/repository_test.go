package portfolio

import (
	"context"
	"database/sql"
	"testing"

	"github.com/aristath/riskwatch/internal/database"
	"github.com/aristath/riskwatch/internal/domain"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.PortfolioSchema)
	require.NoError(t, err)
	return NewRepository(db, zerolog.Nop())
}

func TestGetPortfolioWithHoldings(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreatePortfolio(ctx, 7, "Growth")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertPosition(ctx, id, domain.Holding{
		Symbol: "BBB", Name: "Beta Corp", Sector: "energy", Quantity: 50, AverageCost: 80,
	}))
	require.NoError(t, repo.UpsertPosition(ctx, id, domain.Holding{
		Symbol: "AAA", Name: "Alpha Inc", Sector: "technology", Quantity: 100, AverageCost: 150,
	}))

	record, err := repo.GetPortfolio(ctx, 7, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, int64(7), record.OwnerID)
	assert.Equal(t, "Growth", record.Name)

	require.Len(t, record.Holdings, 2)
	assert.Equal(t, "AAA", record.Holdings[0].Symbol, "holdings are ordered by symbol")
	assert.Equal(t, "BBB", record.Holdings[1].Symbol)
	assert.Equal(t, int64(100), record.Holdings[0].Quantity)
	assert.Equal(t, 150.0, record.Holdings[0].AverageCost)
}

func TestGetPortfolioScopedToOwner(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreatePortfolio(ctx, 7, "Growth")
	require.NoError(t, err)

	_, err = repo.GetPortfolio(ctx, 8, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetPortfolio(ctx, 7, id+99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPortfolios(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreatePortfolio(ctx, 7, "Growth")
	require.NoError(t, err)
	second, err := repo.CreatePortfolio(ctx, 7, "Income")
	require.NoError(t, err)
	_, err = repo.CreatePortfolio(ctx, 8, "Other")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertPosition(ctx, first, domain.Holding{Symbol: "AAA", Quantity: 10}))

	records, err := repo.ListPortfolios(ctx, 7)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0].ID)
	assert.Equal(t, second, records[1].ID)
	assert.Len(t, records[0].Holdings, 1)
	assert.Empty(t, records[1].Holdings)
}

func TestListOwners(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	owners, err := repo.ListOwners(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)

	_, err = repo.CreatePortfolio(ctx, 9, "A")
	require.NoError(t, err)
	_, err = repo.CreatePortfolio(ctx, 3, "B")
	require.NoError(t, err)
	_, err = repo.CreatePortfolio(ctx, 9, "C")
	require.NoError(t, err)

	owners, err = repo.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, owners)
}

func TestUpsertPositionReplaces(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreatePortfolio(ctx, 7, "Growth")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertPosition(ctx, id, domain.Holding{Symbol: "AAA", Quantity: 10, AverageCost: 100}))
	require.NoError(t, repo.UpsertPosition(ctx, id, domain.Holding{Symbol: "AAA", Quantity: 25, AverageCost: 110}))

	record, err := repo.GetPortfolio(ctx, 7, id)
	require.NoError(t, err)
	require.Len(t, record.Holdings, 1)
	assert.Equal(t, int64(25), record.Holdings[0].Quantity)
	assert.Equal(t, 110.0, record.Holdings[0].AverageCost)
}
