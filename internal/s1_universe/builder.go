package s1_universe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Exclusion reasons recorded in UniverseSnapshot.Excluded
const (
	ReasonNoPriceData         = "no_price_data"
	ReasonDelisted            = "delisted"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonNotInAllowlist      = "not_in_allowlist"
)

// Compile-time interface check.
var _ contracts.UniverseBuilder = (*Builder)(nil)

// Builder constructs point-in-time universes from a shared Index
// 한 run 당 하나 (memo 는 run 전용, Index 는 공유)
type Builder struct {
	index *Index
	cache *SnapshotCache
	memo  map[string]*contracts.UniverseSnapshot
	log   *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(index *Index, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		index: index,
		memo:  make(map[string]*contracts.UniverseSnapshot),
		log:   log.WithStage(contracts.StageUniverse.ShortName()),
	}
}

// WithCache attaches a shared snapshot cache
func (b *Builder) WithCache(cache *SnapshotCache) *Builder {
	b.cache = cache
	return b
}

// Build returns the eligible symbols of index at date
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(ctx context.Context, index string, date time.Time, minHistoryMonths int, allowlist []string) (*contracts.UniverseSnapshot, error) {
	panel := b.index.Panel()

	// 1. as-of 거래일
	asOf, ok := panel.TradingDayAtOrBefore(date)
	if !ok {
		return nil, contracts.DataErrorf("no trading day on or before %s", date.Format(contracts.DateLayout))
	}

	// 2. 지수 확인
	if !b.index.HasIndex(index) {
		return nil, contracts.DataErrorf("unrecognized index %q", index)
	}

	key := snapshotKey(index, asOf, minHistoryMonths, allowlist)
	if snap, ok := b.memo[key]; ok {
		return withDate(snap, date), nil
	}

	filterHash := hashFilter(b.index.Fingerprint(), minHistoryMonths, allowlist)
	if b.cache != nil {
		if snap, ok := b.cache.Get(ctx, index, asOf, filterHash); ok {
			b.memo[key] = snap
			return withDate(snap, date), nil
		}
	}

	snap := b.build(index, asOf, minHistoryMonths, allowlist)
	b.memo[key] = snap

	if b.cache != nil {
		b.cache.Set(ctx, index, asOf, filterHash, snap)
	}

	b.log.WithFields(map[string]interface{}{
		"index":    index,
		"date":     asOf.Format(contracts.DateLayout),
		"eligible": snap.Count(),
		"excluded": len(snap.Excluded),
	}).Debug("universe built")

	return withDate(snap, date), nil
}

func (b *Builder) build(index string, asOf time.Time, minHistoryMonths int, allowlist []string) *contracts.UniverseSnapshot {
	panel := b.index.Panel()
	required := contracts.MonthsBefore(asOf, minHistoryMonths)
	allowed := toSet(allowlist)

	snap := &contracts.UniverseSnapshot{
		Index:    index,
		AsOf:     asOf,
		Symbols:  make([]string, 0),
		Excluded: make(map[string]string),
	}

	for _, symbol := range b.index.Symbols(index) {
		// 3. 시점 기준 편입 여부 (미래 정보 사용 안 함)
		if !b.index.IsMember(index, symbol, asOf) {
			continue
		}

		if allowed != nil {
			if _, ok := allowed[symbol]; !ok {
				snap.Excluded[symbol] = ReasonNotInAllowlist
				continue
			}
		}

		// 4. 상장폐지: 마지막 가격일 이후 제외 (당일까지는 유지)
		last, ok := panel.LastDate(symbol)
		if !ok {
			snap.Excluded[symbol] = ReasonNoPriceData
			continue
		}
		if last.Before(asOf) {
			snap.Excluded[symbol] = ReasonDelisted
			continue
		}

		// 5. 연속 이력 길이
		start, ok := b.index.HistoryStart(symbol, asOf)
		if !ok || start.After(required) {
			snap.Excluded[symbol] = ReasonInsufficientHistory
			continue
		}

		snap.Symbols = append(snap.Symbols, symbol)
	}

	sort.Strings(snap.Symbols)
	return snap
}

// withDate returns a shallow copy stamped with the requested date
func withDate(snap *contracts.UniverseSnapshot, date time.Time) *contracts.UniverseSnapshot {
	out := *snap
	out.Date = contracts.Day(date)
	return &out
}

func snapshotKey(index string, asOf time.Time, minHistoryMonths int, allowlist []string) string {
	return fmt.Sprintf("%s|%s|%d|%s", index, asOf.Format(contracts.DateLayout), minHistoryMonths, canonical(allowlist))
}

func hashFilter(fingerprint string, minHistoryMonths int, allowlist []string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", fingerprint, minHistoryMonths, canonical(allowlist))))
	return hex.EncodeToString(h[:])[:16]
}

func canonical(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
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
