package redis

import (
	"context"
	"testing"

	"github.com/hvkconsulling1/momo-sub000/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "momo")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	var result []string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(ctx, "key", []string{"AAA"}, TTLDaily); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestKeys(t *testing.T) {
	cache := NewCache(Disabled(), "momo")

	got := cache.FullKey(UniverseSnapshotKey("SP500", "2020-01-31", "abc"))
	want := "momo:cache:universe:SP500:2020-01-31:abc"
	if got != want {
		t.Errorf("FullKey = %q, want %q", got, want)
	}

	if RunSummaryKey("r1") != "run:summary:r1" {
		t.Errorf("RunSummaryKey = %q", RunSummaryKey("r1"))
	}
}
