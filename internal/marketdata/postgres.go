package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/spreadindex/internal/contracts"
)

// PostgresLoader reads bars from data.daily_prices
// ⭐ SSOT: price storage is accessed here only
type PostgresLoader struct {
	pool *pgxpool.Pool
}

// NewPostgresLoader creates a loader on pool
func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

// LoadBars implements BarLoader
func (r *PostgresLoader) LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT stock_code, trade_date,
			COALESCE(open_price, close_price), COALESCE(high_price, close_price),
			COALESCE(low_price, close_price), close_price, COALESCE(volume, 0)
		FROM data.daily_prices
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = contracts.Day(b.Date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveBars upserts bars in one batch
func (r *PostgresLoader) SaveBars(ctx context.Context, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.daily_prices (stock_code, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Symbol, contracts.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range bars {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save bar %s %s: %w", bars[i].Symbol, bars[i].Date.Format(contracts.DateLayout), err)
		}
	}
	return nil
}
