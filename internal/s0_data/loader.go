package s0_data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// CacheObserver receives cache hit/miss events (pkg/metrics.Recorder)
type CacheObserver interface {
	RecordCache(cache string, hit bool)
}

// Request describes one panel load
type Request struct {
	Universe     string    // index name, also the cache key prefix
	Symbols      []string  // optional; empty = every symbol ever in the index
	Start        time.Time // first bar date (including lookback warm-up)
	End          time.Time
	ForceRefresh bool
}

// Dataset is the immutable input of a backtest run
type Dataset struct {
	Panel      *contracts.PricePanel
	Membership []contracts.MembershipRecord
	FromCache  bool
	Skipped    []string // requested symbols with no bars in the source
}

// Loader orchestrates cache-first panel loading
// ⭐ SSOT: S0 데이터 로딩 진입점 (캐시 → 소스 → 캐시 저장)
type Loader struct {
	prices     contracts.PriceSource
	membership contracts.MembershipSource
	cache      *ParquetCache
	log        *logger.Logger
	observer   CacheObserver
}

// NewLoader creates a loader. cache may be nil (no caching).
func NewLoader(prices contracts.PriceSource, membership contracts.MembershipSource, cache *ParquetCache, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{
		prices:     prices,
		membership: membership,
		cache:      cache,
		log:        log.WithStage(contracts.StageData.ShortName()),
	}
}

// WithObserver attaches a cache observer
func (l *Loader) WithObserver(o CacheObserver) *Loader {
	l.observer = o
	return l
}

// Load returns the price panel and membership for req
func (l *Loader) Load(ctx context.Context, req Request) (*Dataset, error) {
	if req.Universe == "" {
		return nil, contracts.DataErrorf("universe name is required")
	}
	if !req.Start.Before(req.End) {
		return nil, contracts.DataErrorf("load window start %s not before end %s",
			req.Start.Format(contracts.DateLayout), req.End.Format(contracts.DateLayout))
	}

	log := l.log.WithFields(map[string]interface{}{
		"universe":   req.Universe,
		"start_date": req.Start.Format(contracts.DateLayout),
		"end_date":   req.End.Format(contracts.DateLayout),
	})

	// 1. Cache first (unless force refresh)
	if l.cache != nil && !req.ForceRefresh {
		ds, hit, err := l.loadCached(req)
		if err != nil {
			return nil, fmt.Errorf("%w (rerun with force refresh to rebuild)", err)
		}
		l.record(hit)
		if hit {
			log.WithField("symbols", len(ds.Panel.Symbols())).Info("cache_hit")
			return ds, nil
		}
	}
	if l.cache != nil && req.ForceRefresh {
		if err := l.cache.Invalidate(req.Universe, req.Start, req.End); err != nil {
			return nil, err
		}
		log.Debug("cache_invalidated")
	} else {
		log.Info("cache_miss")
	}

	// 2. Source
	membership, err := l.membership.LoadMembership(ctx, req.Universe, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load membership %s: %w", req.Universe, err)
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = symbolsOf(membership)
	}
	if len(symbols) == 0 {
		return nil, contracts.DataErrorf("no symbols for universe %q", req.Universe)
	}

	bars, err := l.prices.LoadBars(ctx, symbols, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if len(bars) == 0 {
		return nil, contracts.DataErrorf("source returned no bars for %d symbols", len(symbols))
	}

	panel, err := contracts.NewPricePanel(bars)
	if err != nil {
		return nil, err
	}

	var skipped []string
	for _, s := range symbols {
		if !panel.HasSymbol(s) {
			skipped = append(skipped, s)
			log.WithField("symbol", s).Warn("symbol has no bars in source, skipped")
		}
	}

	// 3. Save to cache
	if l.cache != nil {
		if err := l.cache.SavePrices(req.Universe, req.Start, req.End, panel.Bars()); err != nil {
			return nil, err
		}
		if len(membership) > 0 {
			if err := l.cache.SaveMembership(req.Universe, req.Start, req.End, membership); err != nil {
				return nil, err
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"symbols": len(panel.Symbols()),
		"rows":    panel.Len(),
		"skipped": len(skipped),
	}).Info("universe_loaded")

	return &Dataset{Panel: panel, Membership: membership, Skipped: skipped}, nil
}

func (l *Loader) loadCached(req Request) (*Dataset, bool, error) {
	bars, found, err := l.cache.LoadPrices(req.Universe, req.Start, req.End)
	if err != nil || !found {
		return nil, false, err
	}
	membership, found, err := l.cache.LoadMembership(req.Universe, req.Start, req.End)
	if err != nil {
		return nil, false, err
	}
	if !found {
		// 가격만 있고 편입 이력이 없으면 미스로 처리
		return nil, false, nil
	}

	panel, err := contracts.NewPricePanel(bars)
	if err != nil {
		return nil, false, contracts.CacheErrorf("cached panel invalid: %v", err)
	}
	return &Dataset{Panel: panel, Membership: membership, FromCache: true}, true, nil
}

func (l *Loader) record(hit bool) {
	if l.observer != nil {
		l.observer.RecordCache("prices", hit)
	}
}

// symbolsOf returns the sorted distinct symbols in membership
func symbolsOf(records []contracts.MembershipRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Symbol] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
