package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// RunRecord is a finished backtest handed to persistence
type RunRecord struct {
	RunID      string             `json:"run_id"`
	StrategyID string             `json:"strategy_id"`
	ConfigHash string             `json:"config_hash"`
	ConfigYAML string             `json:"config_yaml"`
	CreatedAt  time.Time          `json:"created_at"`
	Returns    []ReturnRecord     `json:"returns"`
	Metrics    PerformanceMetrics `json:"metrics"`
	Warnings   []Warning          `json:"warnings"`
}

// RunSummary is the listing view of a stored run
type RunSummary struct {
	RunID      string             `json:"run_id"`
	StrategyID string             `json:"strategy_id"`
	ConfigHash string             `json:"config_hash"`
	CreatedAt  time.Time          `json:"created_at"`
	Metrics    PerformanceMetrics `json:"metrics"`
}

// RunRepository stores and serves finished runs
type RunRepository interface {
	ResultSink
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, runID string) (*RunSummary, error)
	GetReturns(ctx context.Context, runID string) ([]ReturnRecord, error)
}

// ErrRunNotFound is returned when a run ID is unknown
type ErrRunNotFound struct {
	RunID string
}

func (e ErrRunNotFound) Error() string {
	return "run not found: " + e.RunID
}
