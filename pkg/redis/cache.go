package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Enabled reports whether the backing client is live
func (c *Cache) Enabled() bool {
	return c.client != nil && c.client.Enabled()
}

// FullKey returns the namespaced key stored in Redis
func (c *Cache) FullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. found=false on miss or when disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.FullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Redis().Set(ctx, c.FullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.FullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLLong  = 1 * time.Hour  // 실행 요약
	TTLDaily = 24 * time.Hour // 유니버스 스냅샷
)

// UniverseSnapshotKey identifies one point-in-time universe build
// filterHash 는 min_history / allowlist 조합의 해시
func UniverseSnapshotKey(index string, asOf string, filterHash string) string {
	return fmt.Sprintf("universe:%s:%s:%s", index, asOf, filterHash)
}

// RunSummaryKey identifies a cached run summary for the API
func RunSummaryKey(runID string) string {
	return fmt.Sprintf("run:summary:%s", runID)
}
