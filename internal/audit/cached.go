package audit

import (
	"context"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/redis"
)

// Compile-time interface check.
var _ contracts.RunRepository = (*CachedRepository)(nil)

// CachedRepository serves GetRun through Redis in front of another repository.
// Cache failures fall through to the inner repository.
type CachedRepository struct {
	inner  contracts.RunRepository
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedRepository wraps inner; ttl 0 uses redis.TTLLong
func NewCachedRepository(inner contracts.RunRepository, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logger: log}
}

// SaveRun saves through and drops any cached summary of the run
func (r *CachedRepository) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	if err := r.inner.SaveRun(ctx, run); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, redis.RunSummaryKey(run.RunID)); err != nil {
		r.logger.WithError(err).WithField("run_id", run.RunID).Warn("run summary cache invalidation failed")
	}
	return nil
}

// ListRuns is not cached
func (r *CachedRepository) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	return r.inner.ListRuns(ctx, limit)
}

// GetRun returns the cached summary or loads and caches it
func (r *CachedRepository) GetRun(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	key := redis.RunSummaryKey(runID)

	var cached contracts.RunSummary
	found, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.WithError(err).WithField("run_id", runID).Warn("run summary cache read failed")
	}
	if found {
		return &cached, nil
	}

	summary, err := r.inner.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, summary, r.ttl); err != nil {
		r.logger.WithError(err).WithField("run_id", runID).Warn("run summary cache write failed")
	}
	return summary, nil
}

// GetReturns is not cached
func (r *CachedRepository) GetReturns(ctx context.Context, runID string) ([]contracts.ReturnRecord, error) {
	return r.inner.GetReturns(ctx, runID)
}
