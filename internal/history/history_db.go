// Package history provides access to stored daily price data. It backs
// the Price History Provider and Current Price Provider contracts with
// real historical series; the engine never synthesizes market data.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/rs/zerolog"
)

// DB provides access to historical price data.
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a new history database accessor.
func New(db *sql.DB, log zerolog.Logger) *DB {
	return &DB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// GetHistory fetches daily bars for a symbol between start and end
// (inclusive), ordered by date ascending. Missing data yields an empty
// slice, not an error.
func (h *DB) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := h.db.QueryContext(ctx, query, symbol, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var dateUnix int64
		var open, high, low sql.NullFloat64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &open, &high, &low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		c.Date = time.Unix(dateUnix, 0).UTC().Format("2006-01-02")
		if open.Valid {
			c.Open = open.Float64
		}
		if high.Valid {
			c.High = high.Float64
		}
		if low.Valid {
			c.Low = low.Float64
		}
		if volume.Valid {
			v := volume.Int64
			c.Volume = &v
		}

		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return candles, nil
}

// GetCurrentPrice returns the most recent stored close for a symbol.
func (h *DB) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var close float64
	err := h.db.QueryRowContext(ctx, `
		SELECT close FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`, symbol).Scan(&close)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no price data for symbol %s", symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest price: %w", err)
	}
	return close, nil
}

// UpsertPrices stores daily bars for a symbol, replacing existing rows for
// the same date. Used by data-loading tooling and tests.
func (h *DB) UpsertPrices(symbol string, candles []domain.Candle) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		date, err := time.ParseInLocation("2006-01-02", c.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid candle date %q: %w", c.Date, err)
		}
		var volume interface{}
		if c.Volume != nil {
			volume = *c.Volume
		}
		if _, err := stmt.Exec(symbol, date.Unix(), c.Open, c.High, c.Low, c.Close, volume); err != nil {
			return fmt.Errorf("failed to upsert price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("bars", len(candles)).Msg("Upserted daily prices")
	return nil
}
