package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

// ErrNoRun is returned when a strategy has no stored run
var ErrNoRun = fmt.Errorf("%w: no stored run", contracts.ErrMissingData)

// Run is the provenance record of one index computation
type Run struct {
	RunID      string    `json:"run_id"`
	StrategyID string    `json:"strategy_id"`
	ConfigHash string    `json:"config_hash"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	FinalLevel float64   `json:"final_level"`
	ConfigYAML string    `json:"config_yaml,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.New().String()
}

// Repository persists index runs and levels
// ⭐ SSOT: indices.* tables are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores the run and upserts its levels in one transaction
func (r *Repository) Save(ctx context.Context, run *Run, levels *timeseries.Series) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := saveRun(ctx, tx, run); err != nil {
		return err
	}
	if err := saveLevels(ctx, tx, run.StrategyID, run.RunID, levels); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func saveRun(ctx context.Context, tx pgx.Tx, run *Run) error {
	query := `
		INSERT INTO indices.runs (run_id, strategy_id, config_hash, config_yaml, start_date, end_date, final_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		run.RunID, run.StrategyID, run.ConfigHash, run.ConfigYAML,
		contracts.Day(run.Start), contracts.Day(run.End), run.FinalLevel,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func saveLevels(ctx context.Context, tx pgx.Tx, strategyID, runID string, levels *timeseries.Series) error {
	if levels.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO indices.levels (strategy_id, trade_date, level, run_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (strategy_id, trade_date) DO UPDATE SET
			level = EXCLUDED.level,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for d, v := range levels.All() {
		batch.Queue(query, strategyID, d, v, runID)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < levels.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("save levels: %w", err)
		}
	}
	return br.Close()
}

// LatestRun returns the most recent run of a strategy
func (r *Repository) LatestRun(ctx context.Context, strategyID string) (*Run, error) {
	query := `
		SELECT run_id, strategy_id, config_hash, config_yaml, start_date, end_date, final_level, created_at
		FROM indices.runs
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var run Run
	err := r.pool.QueryRow(ctx, query, strategyID).Scan(
		&run.RunID, &run.StrategyID, &run.ConfigHash, &run.ConfigYAML, &run.Start, &run.End, &run.FinalLevel, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoRun, strategyID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestLevels returns the stored levels of a strategy within [from, to]
func (r *Repository) LatestLevels(ctx context.Context, strategyID string, from, to time.Time) (*timeseries.Series, error) {
	query := `
		SELECT trade_date, level
		FROM indices.levels
		WHERE strategy_id = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, strategyID, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var p timeseries.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return timeseries.FromPoints(points), nil
}
