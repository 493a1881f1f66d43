package portfolio

import (
	"time"

	"github.com/gammazero/deque"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// State of the overlapping window
type State string

const (
	StateWarmUp      State = "WARM_UP"      // 형성된 코호트 < K
	StateSteadyState State = "STEADY_STATE" // 활성 코호트 == K
)

type cohort struct {
	period int // Advance 순번
	sub    contracts.SubPortfolio
}

// Aggregator keeps the last K sub-portfolios and averages them into a composite
// ⭐ SSOT: S5 코호트 중첩 (run 당 하나, 패키지 전역 상태 금지)
type Aggregator struct {
	k      int
	window deque.Deque[cohort] // 형성일 순 FIFO
	period int
	last   time.Time
	logger *logger.Logger
}

// NewAggregator creates an aggregator holding K cohorts (K in rebalance periods)
func NewAggregator(k int, log *logger.Logger) (*Aggregator, error) {
	if k < 1 {
		return nil, contracts.ConfigurationErrorf("holding periods must be >= 1, got %d", k)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Aggregator{
		k:      k,
		logger: log.WithStage(contracts.StageAggregate.ShortName()),
	}, nil
}

// K returns the window length
func (a *Aggregator) K() int {
	return a.k
}

// Advance inserts the sub-portfolio formed at date, evicts cohorts aged K or
// more, and returns the composite. Dates must strictly increase.
func (a *Aggregator) Advance(date time.Time, sub contracts.SubPortfolio) (contracts.CompositeWeights, error) {
	date = contracts.Day(date)
	if !a.last.IsZero() && !date.After(a.last) {
		return contracts.CompositeWeights{}, contracts.PortfolioErrorf("advance date %s not after %s",
			date.Format(contracts.DateLayout), a.last.Format(contracts.DateLayout))
	}
	if !sub.FormationDate.IsZero() && !contracts.Day(sub.FormationDate).Equal(date) {
		return contracts.CompositeWeights{}, contracts.PortfolioErrorf("sub-portfolio formed %s advanced at %s",
			sub.FormationDate.Format(contracts.DateLayout), date.Format(contracts.DateLayout))
	}

	a.period++
	a.last = date

	stored := sub.Clone()
	stored.FormationDate = date
	a.window.PushBack(cohort{period: a.period, sub: stored})

	// 1. FIFO 퇴출: age >= K
	for a.window.Len() > 0 && a.period-a.window.Front().period >= a.k {
		evicted := a.window.PopFront()
		a.logger.WithFields(map[string]interface{}{
			"date":    date.Format(contracts.DateLayout),
			"evicted": evicted.sub.FormationDate.Format(contracts.DateLayout),
		}).Debug("Cohort evicted")
	}

	composite := a.composite(date)

	a.logger.WithFields(map[string]interface{}{
		"date":   date.Format(contracts.DateLayout),
		"active": composite.ActiveCount,
		"state":  a.State(),
		"held":   len(composite.Weights),
	}).Debug("Aggregator advanced")

	return composite, nil
}

// composite divides by the active count, not K
func (a *Aggregator) composite(date time.Time) contracts.CompositeWeights {
	n := a.window.Len()
	sums := make(map[string]float64)
	for i := 0; i < n; i++ {
		sub := a.window.At(i).sub
		for _, symbol := range sub.Symbols() {
			sums[symbol] += sub.Weights[symbol]
		}
	}

	weights := make(map[string]float64, len(sums))
	for symbol, total := range sums {
		if total == 0 {
			continue // 롱/숏 상쇄
		}
		weights[symbol] = total / float64(n)
	}
	return contracts.CompositeWeights{Date: date, Weights: weights, ActiveCount: n}
}

// Active returns copies of the active cohorts, oldest first
func (a *Aggregator) Active() []contracts.SubPortfolio {
	out := make([]contracts.SubPortfolio, 0, a.window.Len())
	for i := 0; i < a.window.Len(); i++ {
		out = append(out, a.window.At(i).sub.Clone())
	}
	return out
}

// ActiveCount returns the number of active cohorts (1..K after the first advance)
func (a *Aggregator) ActiveCount() int {
	return a.window.Len()
}

// State reports warm-up until K cohorts are active
func (a *Aggregator) State() State {
	if a.window.Len() < a.k {
		return StateWarmUp
	}
	return StateSteadyState
}

// Reset empties the window for reuse
func (a *Aggregator) Reset() {
	a.window.Clear()
	a.period = 0
	a.last = time.Time{}
}
