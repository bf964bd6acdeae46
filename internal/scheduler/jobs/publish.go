package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/service"
	"github.com/wonny/spreadindex/pkg/logger"
)

// IndexRunner computes the index up to a date
type IndexRunner interface {
	Run(ctx context.Context, end time.Time) (*service.Result, error)
}

// PublishJob recomputes and publishes the index after the close
// ⭐ SSOT: the publishing schedule lives in this job only
type PublishJob struct {
	runner   IndexRunner
	schedule string
	logger   *logger.Logger
}

// NewPublishJob creates a new publish job
func NewPublishJob(runner IndexRunner, schedule string, log *logger.Logger) *PublishJob {
	return &PublishJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PublishJob) Name() string {
	return "index_publish"
}

// Schedule returns the cron schedule (with seconds)
func (j *PublishJob) Schedule() string {
	return j.schedule
}

// Run computes the index through today
func (j *PublishJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled index publish")

	res, err := j.runner.Run(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("publish index: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      res.RunID,
		"end":         res.Summary.End.Format(contracts.DateLayout),
		"final_level": res.Summary.FinalLevel,
		"persisted":   res.Persisted,
	}).Info("Index published")

	return nil
}
