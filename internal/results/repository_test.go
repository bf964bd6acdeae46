package results

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/spreadindex/internal/timeseries"
	"github.com/wonny/spreadindex/pkg/config"
	"github.com/wonny/spreadindex/pkg/database"
)

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

// TestRepository runs against a real database when DATABASE_URL is set
func TestRepository(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{
		URL: url, MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: 30 * time.Minute,
	}})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	repo := NewRepository(db.Pool)
	strategy := "test_" + NewRunID()[:8]
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	run := &Run{RunID: NewRunID(), StrategyID: strategy, ConfigHash: "h", ConfigYAML: "meta: {}", Start: d1, End: d2, FinalLevel: 101}
	levels := timeseries.New(map[time.Time]float64{d1: 100, d2: 101})
	require.NoError(t, repo.Save(ctx, run, levels))

	latest, err := repo.LatestRun(ctx, strategy)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, latest.RunID)
	assert.Equal(t, "meta: {}", latest.ConfigYAML)

	got, err := repo.LatestLevels(ctx, strategy, d1, d2)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101}, got.Values())

	_, err = repo.LatestRun(ctx, "missing_"+strategy)
	assert.ErrorIs(t, err, ErrNoRun)

	_, _ = db.Pool.Exec(ctx, "DELETE FROM indices.levels WHERE strategy_id = $1", strategy)
	_, _ = db.Pool.Exec(ctx, "DELETE FROM indices.runs WHERE strategy_id = $1", strategy)
}
