package quality

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles validation report persistence
// ⭐ SSOT: S0 품질 리포트 저장
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReport upserts a report keyed by (universe, start, end)
func (r *Repository) SaveReport(ctx context.Context, universe string, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO momo.validation_reports (
			universe, start_date, end_date, total_symbols, is_valid, summary, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (universe, start_date, end_date) DO UPDATE SET
			total_symbols = EXCLUDED.total_symbols,
			is_valid = EXCLUDED.is_valid,
			summary = EXCLUDED.summary,
			report = EXCLUDED.report,
			created_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		universe, report.Start, report.End, report.TotalSymbols, report.IsValid, report.Summary, body,
	)
	if err != nil {
		return fmt.Errorf("save validation report: %w", err)
	}
	return nil
}
