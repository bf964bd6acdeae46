package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/pkg/logger"
)

// ImportJob copies recent bars from file drops into the price store
// ⭐ SSOT: the price import schedule lives in this job only
type ImportJob struct {
	src         marketdata.BarLoader
	dst         marketdata.BarSink
	observables []strategyconfig.Observable
	schedule    string
	lookback    int // days
	now         func() time.Time
	logger      *logger.Logger
}

// NewImportJob creates a job that re-imports the last lookback days on each run
func NewImportJob(src marketdata.BarLoader, dst marketdata.BarSink, observables []strategyconfig.Observable, schedule string, lookback int, log *logger.Logger) *ImportJob {
	if lookback <= 0 {
		lookback = 5
	}
	return &ImportJob{
		src:         src,
		dst:         dst,
		observables: observables,
		schedule:    schedule,
		lookback:    lookback,
		now:         time.Now,
		logger:      log,
	}
}

// Name returns the job name
func (j *ImportJob) Name() string {
	return "price_import"
}

// Schedule returns the cron schedule (with seconds)
func (j *ImportJob) Schedule() string {
	return j.schedule
}

// Run imports [today - lookback, today]
func (j *ImportJob) Run(ctx context.Context) error {
	to := j.now()
	from := to.AddDate(0, 0, -j.lookback)

	stats, err := marketdata.Import(ctx, j.src, j.dst, j.observables, from, to)
	if err != nil {
		return fmt.Errorf("import prices: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"bars":    stats.Total(),
		"tickers": len(stats),
	}).Info("Scheduled price import completed")

	return nil
}
