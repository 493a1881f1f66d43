package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// Compile-time interface check.
var _ contracts.RunRepository = (*Repository)(nil)

// Repository persists finished runs in momo.backtest_runs / momo.return_records
// ⭐ SSOT: 실행 결과 DB 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun writes the run and its return series in one transaction.
// Saving the same run ID again replaces the previous rows.
func (r *Repository) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []contracts.Warning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO momo.backtest_runs (
			run_id, strategy_id, config_hash, config_yaml, metrics, warnings, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			strategy_id = EXCLUDED.strategy_id,
			config_hash = EXCLUDED.config_hash,
			config_yaml = EXCLUDED.config_yaml,
			metrics = EXCLUDED.metrics,
			warnings = EXCLUDED.warnings,
			created_at = EXCLUDED.created_at
	`
	if _, err := tx.Exec(ctx, query,
		run.RunID, run.StrategyID, run.ConfigHash, run.ConfigYAML,
		metricsJSON, warningsJSON, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM momo.return_records WHERE run_id = $1`, run.RunID); err != nil {
		return fmt.Errorf("failed to clear returns: %w", err)
	}

	rows := make([][]interface{}, len(run.Returns))
	for i, rec := range run.Returns {
		rows[i] = []interface{}{
			run.RunID, contracts.Day(rec.Date), contracts.Day(rec.EndDate),
			rec.PortfolioReturn, rec.CumulativeValue, rec.Turnover,
			rec.LongCount, rec.ShortCount, rec.ActiveCohorts, rec.MissingReturns, rec.Degenerate,
		}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"momo", "return_records"},
		[]string{
			"run_id", "period_date", "end_date",
			"portfolio_return", "cumulative_value", "turnover",
			"long_count", "short_count", "active_cohorts", "missing_returns", "degenerate",
		},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("failed to copy returns: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT run_id, strategy_id, config_hash, created_at, metrics
		FROM momo.backtest_runs
		ORDER BY created_at DESC, run_id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.RunSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *summary)
	}
	return runs, rows.Err()
}

// GetRun retrieves one run
func (r *Repository) GetRun(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	query := `
		SELECT run_id, strategy_id, config_hash, created_at, metrics
		FROM momo.backtest_runs
		WHERE run_id = $1
	`

	summary, err := scanSummary(r.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrRunNotFound{RunID: runID}
	}
	return summary, err
}

// GetReturns retrieves the return series of one run in date order
func (r *Repository) GetReturns(ctx context.Context, runID string) ([]contracts.ReturnRecord, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `
		SELECT period_date, end_date, portfolio_return, cumulative_value, turnover,
		       long_count, short_count, active_cohorts, missing_returns, degenerate
		FROM momo.return_records
		WHERE run_id = $1
		ORDER BY period_date ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.ReturnRecord, 0)
	for rows.Next() {
		var rec contracts.ReturnRecord
		if err := rows.Scan(
			&rec.Date, &rec.EndDate, &rec.PortfolioReturn, &rec.CumulativeValue, &rec.Turnover,
			&rec.LongCount, &rec.ShortCount, &rec.ActiveCohorts, &rec.MissingReturns, &rec.Degenerate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		rec.Date = contracts.Day(rec.Date)
		rec.EndDate = contracts.Day(rec.EndDate)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanSummary(row pgx.Row) (*contracts.RunSummary, error) {
	var summary contracts.RunSummary
	var metricsJSON []byte
	if err := row.Scan(&summary.RunID, &summary.StrategyID, &summary.ConfigHash, &summary.CreatedAt, &metricsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &summary.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	summary.CreatedAt = summary.CreatedAt.UTC()
	return &summary, nil
}
