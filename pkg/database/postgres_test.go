package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hvkconsulling1/momo-sub000/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestNew_BadURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "://not a url", MaxConns: 1}}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected parse error, got nil")
	}
}

func TestHealthCheckAndMigrate(t *testing.T) {
	// Skip if MOMO_TEST_DATABASE_URL is not set
	url := os.Getenv("MOMO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MOMO_TEST_DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil || !status.Healthy {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// 두 번째 실행도 성공해야 함
	if err := db.Migrate(ctx); err != nil {
		t.Errorf("Migrate not idempotent: %v", err)
	}
}
