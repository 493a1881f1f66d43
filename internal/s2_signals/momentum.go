package s2_signals

import (
	"context"
	"math"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Compile-time interface check.
var _ contracts.SignalCalculator = (*MomentumCalculator)(nil)

// MomentumCalculator calculates lookback/skip momentum scores
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
//
//	score = P(date − skip) / P(date − lookback) − 1   (수정주가 기준)
type MomentumCalculator struct {
	lookbackMonths int
	skipMonths     int
	logger         *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator.
// skip ≥ lookback is a ConfigurationError.
func NewMomentumCalculator(lookbackMonths, skipMonths int, log *logger.Logger) (*MomentumCalculator, error) {
	if lookbackMonths < 1 {
		return nil, contracts.ConfigurationErrorf("lookback_months must be >= 1, got %d", lookbackMonths)
	}
	if skipMonths < 0 || skipMonths >= lookbackMonths {
		return nil, contracts.ConfigurationErrorf("skip_months must be in [0, %d), got %d", lookbackMonths, skipMonths)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &MomentumCalculator{
		lookbackMonths: lookbackMonths,
		skipMonths:     skipMonths,
		logger:         log.WithStage(contracts.StageSignals.ShortName()),
	}, nil
}

// Calculate scores every symbol at date. When no score is defined the set is
// still returned, together with a SignalError.
func (c *MomentumCalculator) Calculate(ctx context.Context, panel *contracts.PricePanel, date time.Time, symbols []string) (*contracts.SignalSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	date = contracts.Day(date)
	lookbackAnchor, skipAnchor := c.anchors(panel, date)

	set := contracts.NewSignalSet(date)
	for _, symbol := range symbols {
		set.Scores[symbol] = c.score(panel, symbol, lookbackAnchor, skipAnchor)
	}

	defined := len(set.Defined())
	c.logger.WithFields(map[string]interface{}{
		"date":      date.Format(contracts.DateLayout),
		"symbols":   len(symbols),
		"defined":   defined,
		"undefined": len(symbols) - defined,
	}).Debug("Calculated momentum signals")

	if defined == 0 {
		return set, contracts.SignalErrorf("no defined momentum score on %s (%d symbols)", date.Format(contracts.DateLayout), len(symbols))
	}
	return set, nil
}

// anchors shifts date back by the lookback and skip months. A month-end
// trading day anchors to calendar month ends (2020-02-28 − 1m = 2020-01-31);
// any other date anchors day-for-day.
func (c *MomentumCalculator) anchors(panel *contracts.PricePanel, date time.Time) (time.Time, time.Time) {
	lookback := contracts.MonthsBefore(date, c.lookbackMonths)
	skip := contracts.MonthsBefore(date, c.skipMonths)
	if panel.IsMonthEnd(date) {
		lookback = contracts.MonthEnd(lookback)
		skip = contracts.MonthEnd(skip)
	}
	return lookback, skip
}

// score returns undefined when the symbol has no bar by the lookback anchor,
// when either price is unusable, or when the skip bar precedes the lookback bar.
func (c *MomentumCalculator) score(panel *contracts.PricePanel, symbol string, lookbackAnchor, skipAnchor time.Time) contracts.Score {
	start, ok := panel.BarAtOrBefore(symbol, lookbackAnchor)
	if !ok {
		return contracts.Undefined()
	}
	end, ok := panel.BarAtOrBefore(symbol, skipAnchor)
	if !ok || end.Date.Before(start.Date) {
		return contracts.Undefined()
	}
	if !usable(start.Close) || !usable(end.Close) {
		return contracts.Undefined()
	}
	return contracts.DefinedScore(end.Close/start.Close - 1)
}

func usable(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
