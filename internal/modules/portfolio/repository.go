// Package portfolio provides stored-portfolio access and point-in-time
// snapshot construction for the risk pipeline.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a portfolio does not exist for the owner.
var ErrNotFound = errors.New("portfolio not found")

// Repository handles portfolio database operations. It implements
// domain.PortfolioStore and is read-only from the engine's perspective;
// the write helpers exist for tooling and tests.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetPortfolio returns a portfolio with its holdings.
func (r *Repository) GetPortfolio(ctx context.Context, ownerID, portfolioID int64) (*domain.PortfolioRecord, error) {
	record := &domain.PortfolioRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name FROM portfolios WHERE id = ? AND owner_id = ?`,
		portfolioID, ownerID,
	).Scan(&record.ID, &record.OwnerID, &record.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}

	holdings, err := r.getHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	record.Holdings = holdings

	return record, nil
}

// ListPortfolios returns all portfolios for an owner, holdings included.
func (r *Repository) ListPortfolios(ctx context.Context, ownerID int64) ([]domain.PortfolioRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name FROM portfolios WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var records []domain.PortfolioRecord
	for rows.Next() {
		var record domain.PortfolioRecord
		if err := rows.Scan(&record.ID, &record.OwnerID, &record.Name); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	for i := range records {
		holdings, err := r.getHoldings(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Holdings = holdings
	}

	return records, nil
}

func (r *Repository) getHoldings(ctx context.Context, portfolioID int64) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, name, sector, quantity, avg_cost
		FROM positions
		WHERE portfolio_id = ?
		ORDER BY symbol
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Name, &h.Sector, &h.Quantity, &h.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return holdings, nil
}

// ListOwners returns the distinct owner ids that have portfolios.
func (r *Repository) ListOwners(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM portfolios ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var owner int64
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}
	return owners, nil
}

// CreatePortfolio inserts a portfolio and returns its id.
func (r *Repository) CreatePortfolio(ctx context.Context, ownerID int64, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (owner_id, name) VALUES (?, ?)`, ownerID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return res.LastInsertId()
}

// UpsertPosition inserts or replaces a stored position row.
func (r *Repository) UpsertPosition(ctx context.Context, portfolioID int64, h domain.Holding) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (portfolio_id, symbol, name, sector, quantity, avg_cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			last_updated = strftime('%s','now')
	`, portfolioID, h.Symbol, h.Name, h.Sector, h.Quantity, h.AverageCost)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}
