package s0_data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// PriceRecord is the Parquet schema for cached daily bars
type PriceRecord struct {
	Date            int64   `parquet:"date,timestamp(millisecond)"` // Unix ms, UTC midnight
	Symbol          string  `parquet:"symbol,dict"`
	Open            float64 `parquet:"open"`
	High            float64 `parquet:"high"`
	Low             float64 `parquet:"low"`
	Close           float64 `parquet:"close"`
	Volume          int64   `parquet:"volume"`
	UnadjustedClose float64 `parquet:"unadjusted_close"`
	Dividend        float64 `parquet:"dividend"`
}

// MembershipRow is the Parquet schema for cached index membership
type MembershipRow struct {
	Date      int64  `parquet:"date,timestamp(millisecond)"`
	Symbol    string `parquet:"symbol,dict"`
	IndexName string `parquet:"index_name,dict"`
	IsMember  bool   `parquet:"is_member"`
}

var priceColumns = []string{"date", "symbol", "open", "high", "low", "close", "volume", "unadjusted_close", "dividend"}

var membershipColumns = []string{"date", "symbol", "index_name", "is_member"}

// ParquetCache stores loaded panels under {DataDir}/cache
// ⭐ SSOT: 로컬 가격 캐시 경로/스키마는 여기서만
type ParquetCache struct {
	DataDir string
}

// NewParquetCache creates a cache rooted at dataDir
func NewParquetCache(dataDir string) *ParquetCache {
	return &ParquetCache{DataDir: dataDir}
}

// PricePath returns {DataDir}/cache/prices/{universe}_{start}_{end}.parquet
func (c *ParquetCache) PricePath(universe string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.parquet", universe, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	return filepath.Join(c.DataDir, "cache", "prices", name)
}

// MembershipPath returns {DataDir}/cache/membership/{universe}_{start}_{end}.parquet
func (c *ParquetCache) MembershipPath(universe string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.parquet", universe, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	return filepath.Join(c.DataDir, "cache", "membership", name)
}

// LoadPrices reads cached bars. found=false when no cache file exists.
// An existing but empty or malformed file is a CacheError.
func (c *ParquetCache) LoadPrices(universe string, start, end time.Time) ([]contracts.PriceBar, bool, error) {
	path := c.PricePath(universe, start, end)
	records, found, err := readChecked[PriceRecord](path, priceColumns)
	if err != nil || !found {
		return nil, found, err
	}

	return recordsToBars(records), true, nil
}

// SavePrices writes bars sorted by (symbol, date)
func (c *ParquetCache) SavePrices(universe string, start, end time.Time, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return contracts.CacheErrorf("cannot cache empty price frame (0 rows)")
	}

	return writeAtomic(c.PricePath(universe, start, end), barsToRecords(bars))
}

// LoadMembership reads cached membership records
func (c *ParquetCache) LoadMembership(universe string, start, end time.Time) ([]contracts.MembershipRecord, bool, error) {
	rows, found, err := readChecked[MembershipRow](c.MembershipPath(universe, start, end), membershipColumns)
	if err != nil || !found {
		return nil, found, err
	}
	return membershipFromRows(rows), true, nil
}

// SaveMembership writes membership sorted by (symbol, date)
func (c *ParquetCache) SaveMembership(universe string, start, end time.Time, records []contracts.MembershipRecord) error {
	if len(records) == 0 {
		return contracts.CacheErrorf("cannot cache empty membership frame (0 rows)")
	}
	return writeAtomic(c.MembershipPath(universe, start, end), membershipToRows(records))
}

// Invalidate removes both cache files for a key (force refresh)
func (c *ParquetCache) Invalidate(universe string, start, end time.Time) error {
	for _, path := range []string{c.PricePath(universe, start, end), c.MembershipPath(universe, start, end)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache %s: %w", path, err)
		}
	}
	return nil
}

// barsToRecords converts bars to on-disk rows sorted by (symbol, date)
func barsToRecords(bars []contracts.PriceBar) []PriceRecord {
	records := make([]PriceRecord, len(bars))
	for i, b := range bars {
		records[i] = PriceRecord{
			Date:            contracts.Day(b.Date).UnixMilli(),
			Symbol:          b.Symbol,
			Open:            b.Open,
			High:            b.High,
			Low:             b.Low,
			Close:           b.Close,
			Volume:          b.Volume,
			UnadjustedClose: b.UnadjustedClose,
			Dividend:        b.Dividend,
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Symbol != records[j].Symbol {
			return records[i].Symbol < records[j].Symbol
		}
		return records[i].Date < records[j].Date
	})
	return records
}

func recordsToBars(records []PriceRecord) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, len(records))
	for i, r := range records {
		bars[i] = contracts.PriceBar{
			Date:            time.UnixMilli(r.Date).UTC(),
			Symbol:          r.Symbol,
			Open:            r.Open,
			High:            r.High,
			Low:             r.Low,
			Close:           r.Close,
			UnadjustedClose: r.UnadjustedClose,
			Volume:          r.Volume,
			Dividend:        r.Dividend,
		}
	}
	return bars
}

func membershipToRows(records []contracts.MembershipRecord) []MembershipRow {
	rows := make([]MembershipRow, len(records))
	for i, r := range records {
		rows[i] = MembershipRow{
			Date:      contracts.Day(r.Date).UnixMilli(),
			Symbol:    r.Symbol,
			IndexName: r.IndexName,
			IsMember:  r.IsMember,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Date < rows[j].Date
	})
	return rows
}

func membershipFromRows(rows []MembershipRow) []contracts.MembershipRecord {
	out := make([]contracts.MembershipRecord, len(rows))
	for i, r := range rows {
		out[i] = contracts.MembershipRecord{
			Date:      time.UnixMilli(r.Date).UTC(),
			Symbol:    r.Symbol,
			IndexName: r.IndexName,
			IsMember:  r.IsMember,
		}
	}
	return out
}

// readChecked opens path, verifies required columns and a non-empty row group,
// then decodes every row into T
func readChecked[T any](path string, required []string) ([]T, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, contracts.CacheErrorf("open %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, true, contracts.CacheErrorf("stat %s: %v", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, true, contracts.CacheErrorf("corrupt parquet %s: %v", path, err)
	}

	var missing []string
	for _, col := range required {
		if _, ok := pf.Schema().Lookup(col); !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, true, contracts.CacheErrorf("%s missing required columns: %v", path, missing)
	}
	if pf.NumRows() == 0 {
		return nil, true, contracts.CacheErrorf("%s is empty (0 rows)", path)
	}

	rows, err := parquet.Read[T](f, info.Size())
	if err != nil {
		return nil, true, contracts.CacheErrorf("decode %s: %v", path, err)
	}
	return rows, true, nil
}

// writeAtomic writes records to a temp file in the same directory, then renames
func writeAtomic[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return contracts.CacheErrorf("mkdir %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.parquet")
	if err != nil {
		return contracts.CacheErrorf("create temp in %s: %v", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := parquet.Write(tmp, records); err != nil {
		tmp.Close()
		return contracts.CacheErrorf("write %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return contracts.CacheErrorf("close %s: %v", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return contracts.CacheErrorf("rename %s: %v", path, err)
	}
	return nil
}
