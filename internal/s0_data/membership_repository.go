package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// Compile-time interface check.
var _ contracts.MembershipSource = (*MembershipRepository)(nil)

// MembershipRepository reads and writes momo.index_membership
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// LoadMembership returns every change for index dated on or before end
// start 이전 레코드도 필요: as-of 시점의 최신 편입 상태 판정용
func (r *MembershipRepository) LoadMembership(ctx context.Context, index string, _, end time.Time) ([]contracts.MembershipRecord, error) {
	query := `
		SELECT change_date, symbol, index_name, is_member
		FROM momo.index_membership
		WHERE index_name = $1 AND change_date <= $2
		ORDER BY symbol, change_date
	`

	rows, err := r.pool.Query(ctx, query, index, contracts.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query membership: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.MembershipRecord, error) {
		var m contracts.MembershipRecord
		err := row.Scan(&m.Date, &m.Symbol, &m.IndexName, &m.IsMember)
		m.Date = contracts.Day(m.Date)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return records, nil
}

// SaveMembership replaces the stored history of each affected index in one transaction
func (r *MembershipRepository) SaveMembership(ctx context.Context, records []contracts.MembershipRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	indexes := make(map[string]struct{})
	for _, m := range records {
		indexes[m.IndexName] = struct{}{}
	}
	for index := range indexes {
		if _, err := tx.Exec(ctx, `DELETE FROM momo.index_membership WHERE index_name = $1`, index); err != nil {
			return fmt.Errorf("clear membership %s: %w", index, err)
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"momo", "index_membership"},
		[]string{"index_name", "symbol", "change_date", "is_member"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			m := records[i]
			return []any{m.IndexName, m.Symbol, contracts.Day(m.Date), m.IsMember}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy membership: %w", err)
	}

	return tx.Commit(ctx)
}
