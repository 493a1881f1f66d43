package jobs

import (
	"context"

	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Pruner removes old runs (audit.FileStore)
type Pruner interface {
	Prune(ctx context.Context, keep int) ([]string, error)
}

// RetentionJob keeps only the newest result directories
type RetentionJob struct {
	store  Pruner
	keep   int
	logger *logger.Logger
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(store Pruner, keep int, log *logger.Logger) *RetentionJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &RetentionJob{
		store:  store,
		keep:   keep,
		logger: log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "results_retention"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the pruning
func (j *RetentionJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled results retention")

	removed, err := j.store.Prune(ctx, j.keep)
	if err != nil {
		return err
	}

	if len(removed) > 0 {
		j.logger.WithField("removed", len(removed)).Info("Results retention completed")
	}

	return nil
}
