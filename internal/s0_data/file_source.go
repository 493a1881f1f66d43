package s0_data

import (
	"context"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// Compile-time interface checks.
var _ contracts.PriceSource = (*FileSource)(nil)
var _ contracts.MembershipSource = (*FileSource)(nil)

// FileSource serves bars and membership from vendor export Parquet files
// (same schema as the cache). Used offline and by `data import`.
type FileSource struct {
	PricesPath     string
	MembershipPath string
}

// NewFileSource creates a source over two Parquet files
func NewFileSource(pricesPath, membershipPath string) *FileSource {
	return &FileSource{PricesPath: pricesPath, MembershipPath: membershipPath}
}

// LoadBars returns bars for symbols within [start, end]; empty symbols means all
func (s *FileSource) LoadBars(ctx context.Context, symbols []string, start, end time.Time) ([]contracts.PriceBar, error) {
	records, found, err := readChecked[PriceRecord](s.PricesPath, priceColumns)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contracts.DataErrorf("price file not found: %s", s.PricesPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := toSet(symbols)
	startMs, endMs := contracts.Day(start).UnixMilli(), contracts.Day(end).UnixMilli()

	filtered := records[:0]
	for _, r := range records {
		if r.Date < startMs || r.Date > endMs {
			continue
		}
		if want != nil {
			if _, ok := want[r.Symbol]; !ok {
				continue
			}
		}
		filtered = append(filtered, r)
	}
	return recordsToBars(filtered), nil
}

// LoadMembership returns every record for index dated on or before end
// 시작일 이전 이력도 포함 (시점 기준 편입 판정에 필요)
func (s *FileSource) LoadMembership(ctx context.Context, index string, _, end time.Time) ([]contracts.MembershipRecord, error) {
	rows, found, err := readChecked[MembershipRow](s.MembershipPath, membershipColumns)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contracts.DataErrorf("membership file not found: %s", s.MembershipPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endMs := contracts.Day(end).UnixMilli()
	filtered := rows[:0]
	for _, r := range rows {
		if r.IndexName == index && r.Date <= endMs {
			filtered = append(filtered, r)
		}
	}
	return membershipFromRows(filtered), nil
}

// WritePriceFile writes bars in the vendor export schema (tests, fixtures)
func WritePriceFile(path string, bars []contracts.PriceBar) error {
	return writeAtomic(path, barsToRecords(bars))
}

// WriteMembershipFile writes membership in the vendor export schema
func WriteMembershipFile(path string, records []contracts.MembershipRecord) error {
	return writeAtomic(path, membershipToRows(records))
}

func toSet(symbols []string) map[string]struct{} {
	if len(symbols) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return set
}
