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
var _ contracts.PriceSource = (*PriceRepository)(nil)

// PriceRepository reads and writes momo.daily_prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// LoadBars retrieves bars for symbols within [start, end]; empty symbols means all
func (r *PriceRepository) LoadBars(ctx context.Context, symbols []string, start, end time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT symbol, trade_date,
		       COALESCE(open_price, 'NaN'), COALESCE(high_price, 'NaN'), COALESCE(low_price, 'NaN'),
		       close_price, COALESCE(unadjusted_close, close_price), volume, dividend
		FROM momo.daily_prices
		WHERE trade_date BETWEEN $1 AND $2
		  AND (cardinality($3::text[]) = 0 OR symbol = ANY($3))
		ORDER BY symbol, trade_date
	`

	if symbols == nil {
		symbols = []string{}
	}
	rows, err := r.pool.Query(ctx, query, contracts.Day(start), contracts.Day(end), symbols)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.UnadjustedClose, &b.Volume, &b.Dividend); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		b.Date = contracts.Day(b.Date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveBars upserts bars in one batch
func (r *PriceRepository) SaveBars(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO momo.daily_prices (symbol, trade_date, open_price, high_price, low_price, close_price, unadjusted_close, volume, dividend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			unadjusted_close = EXCLUDED.unadjusted_close,
			volume = EXCLUDED.volume,
			dividend = EXCLUDED.dividend
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Symbol, contracts.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.UnadjustedClose, b.Volume, b.Dividend)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %d prices: %w", len(bars), err)
	}
	return nil
}

// CountBars returns the stored row count (import reporting)
func (r *PriceRepository) CountBars(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM momo.daily_prices`).Scan(&n)
	return n, err
}
