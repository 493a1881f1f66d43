package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// ReturnEngine applies composite weights to forward returns, period by period
// ⭐ SSOT: S6 기간 수익률/누적 가치/회전율 계산은 여기서만
type ReturnEngine struct {
	panel      *contracts.PricePanel
	cumulative float64
	previous   map[string]float64 // 직전 기간 합성 비중 (처음엔 빈 포트폴리오)
	logger     *logger.Logger
}

// NewReturnEngine creates a return engine starting at cumulative value 1.0
func NewReturnEngine(panel *contracts.PricePanel, log *logger.Logger) *ReturnEngine {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReturnEngine{
		panel:      panel,
		cumulative: 1.0,
		previous:   make(map[string]float64),
		logger:     log.WithStage(contracts.StageReturns.ShortName()),
	}
}

// Step books the period [composite.Date, end). A held symbol without a usable
// close on either day contributes zero and yields a warning.
func (e *ReturnEngine) Step(composite contracts.CompositeWeights, end time.Time) (contracts.ReturnRecord, []contracts.Warning) {
	start := contracts.Day(composite.Date)
	end = contracts.Day(end)

	var warnings []contracts.Warning
	portfolioReturn := 0.0
	missing := 0

	// 1. 기간 수익률 (종목 정렬 순서로 합산)
	for _, symbol := range composite.Symbols() {
		w := composite.Weights[symbol]
		r, ok := e.forwardReturn(symbol, start, end)
		if !ok {
			missing++
			warnings = append(warnings, contracts.Warning{
				Date:    start,
				Symbol:  symbol,
				Code:    contracts.WarnMissingForwardReturn,
				Message: fmt.Sprintf("no close for %s on %s or %s; contribution set to 0", symbol, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout)),
			})
			continue
		}
		portfolioReturn += w * r
	}

	// 2. 누적 가치
	e.cumulative *= 1 + portfolioReturn

	// 3. 회전율 = Σ|w_t − w_{t−1}| / 2
	turnover := Turnover(e.previous, composite.Weights)
	e.previous = copyWeights(composite.Weights)

	if missing > 0 {
		e.logger.WithFields(map[string]interface{}{
			"date":    start.Format(contracts.DateLayout),
			"missing": missing,
		}).Warn("Missing forward returns treated as zero")
	}

	return contracts.ReturnRecord{
		Date:            start,
		EndDate:         end,
		PortfolioReturn: portfolioReturn,
		CumulativeValue: e.cumulative,
		Turnover:        turnover,
		LongCount:       composite.LongCount(),
		ShortCount:      composite.ShortCount(),
		ActiveCohorts:   composite.ActiveCount,
		MissingReturns:  missing,
	}, warnings
}

// Cumulative returns the current cumulative value
func (e *ReturnEngine) Cumulative() float64 {
	return e.cumulative
}

// Reset restores the initial state
func (e *ReturnEngine) Reset() {
	e.cumulative = 1.0
	e.previous = make(map[string]float64)
}

// forwardReturn uses bars dated exactly start and end
func (e *ReturnEngine) forwardReturn(symbol string, start, end time.Time) (float64, bool) {
	from, ok := e.panel.Bar(symbol, start)
	if !ok || !usable(from.Close) {
		return 0, false
	}
	to, ok := e.panel.Bar(symbol, end)
	if !ok || !usable(to.Close) {
		return 0, false
	}
	return to.Close/from.Close - 1, true
}

// Turnover returns half the L1 distance between two weight maps,
// summed over the union of symbols in sorted order
func Turnover(previous, current map[string]float64) float64 {
	union := make(map[string]float64, len(previous)+len(current))
	for s := range previous {
		union[s] = 0
	}
	for s := range current {
		union[s] = 0
	}

	total := 0.0
	for _, symbol := range (contracts.CompositeWeights{Weights: union}).Symbols() {
		total += math.Abs(current[symbol] - previous[symbol])
	}
	return total / 2
}

func copyWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for s, v := range w {
		out[s] = v
	}
	return out
}

func usable(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
