package s1_universe

import (
	"context"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/redis"
)

// SnapshotCache shares universe snapshots across runs through Redis
// 캐시는 정확성 요건이 아님: 실패 시 경고 후 직접 계산
type SnapshotCache struct {
	cache *redis.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewSnapshotCache wraps a Redis cache helper
func NewSnapshotCache(cache *redis.Cache, ttl time.Duration, log *logger.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SnapshotCache{cache: cache, ttl: ttl, log: log}
}

// Get returns a cached snapshot if present
func (c *SnapshotCache) Get(ctx context.Context, index string, asOf time.Time, filterHash string) (*contracts.UniverseSnapshot, bool) {
	var snap contracts.UniverseSnapshot
	found, err := c.cache.Get(ctx, redis.UniverseSnapshotKey(index, asOf.Format(contracts.DateLayout), filterHash), &snap)
	if err != nil {
		c.log.WithError(err).Warn("universe snapshot cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	snap.AsOf = contracts.Day(snap.AsOf)
	if snap.Excluded == nil {
		snap.Excluded = make(map[string]string)
	}
	return &snap, true
}

// Set stores a snapshot; failures are logged, not returned
func (c *SnapshotCache) Set(ctx context.Context, index string, asOf time.Time, filterHash string, snap *contracts.UniverseSnapshot) {
	key := redis.UniverseSnapshotKey(index, asOf.Format(contracts.DateLayout), filterHash)
	if err := c.cache.Set(ctx, key, snap, c.ttl); err != nil {
		c.log.WithError(err).Warn("universe snapshot cache write failed")
	}
}
