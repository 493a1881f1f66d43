package selection

import (
	"context"
	"sort"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Compile-time interface check.
var _ contracts.Selector = (*Ranker)(nil)

// Ranker implements S3: cross-sectional percentile ranking and long/short selection
// ⭐ SSOT: S3 순위/선정 로직은 여기서만
type Ranker struct {
	longPct      float64
	shortPct     float64
	minSideCount int
	logger       *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(longPct, shortPct float64, minSideCount int, log *logger.Logger) (*Ranker, error) {
	if longPct < 0 || longPct > 1 || shortPct < 0 || shortPct > 1 {
		return nil, contracts.ConfigurationErrorf("percentiles must be in [0,1], got long=%v short=%v", longPct, shortPct)
	}
	if shortPct >= longPct {
		return nil, contracts.ConfigurationErrorf("short_percentile (%v) must be < long_percentile (%v)", shortPct, longPct)
	}
	if minSideCount < 1 {
		minSideCount = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ranker{
		longPct:      longPct,
		shortPct:     shortPct,
		minSideCount: minSideCount,
		logger:       log.WithStage(contracts.StageSelection.ShortName()),
	}, nil
}

// Select ranks defined scores and picks both sides.
// Undefined scores are excluded, not ranked as zero.
func (r *Ranker) Select(ctx context.Context, signals *contracts.SignalSet) (*contracts.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selection := &contracts.Selection{
		Date:        signals.Date,
		Long:        make([]string, 0),
		Short:       make([]string, 0),
		Percentiles: make(map[string]float64),
	}

	scores := make(map[string]float64)
	for _, symbol := range signals.Defined() {
		scores[symbol] = signals.Get(symbol).Value
	}
	if len(scores) == 0 {
		return selection, nil
	}

	selection.Percentiles = Percentiles(scores)
	for _, symbol := range signals.Defined() {
		pct := selection.Percentiles[symbol]
		if pct >= r.longPct {
			selection.Long = append(selection.Long, symbol)
		}
		if pct <= r.shortPct {
			selection.Short = append(selection.Short, symbol)
		}
	}

	// 한쪽이 최소 종목 수 미만이면 그쪽은 비움 (에러 아님)
	if n := len(selection.Long); n > 0 && n < r.minSideCount {
		r.emptySide(selection, contracts.SideLong, n)
		selection.Long = make([]string, 0)
	}
	if n := len(selection.Short); n > 0 && n < r.minSideCount {
		r.emptySide(selection, contracts.SideShort, n)
		selection.Short = make([]string, 0)
	}

	r.logger.WithFields(map[string]interface{}{
		"date":   signals.Date.Format(contracts.DateLayout),
		"ranked": len(scores),
		"long":   len(selection.Long),
		"short":  len(selection.Short),
	}).Debug("Selection completed")

	return selection, nil
}

func (r *Ranker) emptySide(selection *contracts.Selection, side contracts.Side, count int) {
	selection.Emptied = append(selection.Emptied, side)
	r.logger.WithFields(map[string]interface{}{
		"date":           selection.Date.Format(contracts.DateLayout),
		"side":           side,
		"count":          count,
		"min_side_count": r.minSideCount,
	}).Warn("side below min_side_count, treated as empty")
}

// Percentiles converts scores to (rank − 1) / (n − 1) using fractional ranks:
// tied scores share the average of their ranks. A single score maps to 0.5.
func Percentiles(scores map[string]float64) map[string]float64 {
	symbols := make([]string, 0, len(scores))
	for s := range scores {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		a, b := scores[symbols[i]], scores[symbols[j]]
		if a != b {
			return a < b
		}
		return symbols[i] < symbols[j]
	})

	n := len(symbols)
	out := make(map[string]float64, n)
	if n == 1 {
		out[symbols[0]] = 0.5
		return out
	}

	for i := 0; i < n; {
		j := i + 1
		for j < n && scores[symbols[j]] == scores[symbols[i]] {
			j++
		}
		// 순위 i+1 .. j 의 평균
		rank := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			out[symbols[k]] = (rank - 1) / float64(n-1)
		}
		i = j
	}
	return out
}
