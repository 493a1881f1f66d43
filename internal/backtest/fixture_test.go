package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

const testIndex = "TEST"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// stepPanel builds weekday bars from January 2019; every bar in month i
// closes at levels[symbol][i]
func stepPanel(t *testing.T, levels map[string][]float64, drop ...contracts.PriceBar) *contracts.PricePanel {
	t.Helper()
	skip := make(map[string]bool)
	for _, b := range drop {
		skip[b.Symbol+b.Date.Format(contracts.DateLayout)] = true
	}

	var bars []contracts.PriceBar
	for symbol, series := range levels {
		for i, level := range series {
			first := day(2019, time.January+time.Month(i), 1)
			for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
				if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
					continue
				}
				if skip[symbol+d.Format(contracts.DateLayout)] {
					continue
				}
				bars = append(bars, contracts.PriceBar{Date: d, Symbol: symbol, Close: level, UnadjustedClose: level, Volume: 1000})
			}
		}
	}
	panel, err := contracts.NewPricePanel(bars)
	require.NoError(t, err)
	return panel
}

func members(symbols ...string) []contracts.MembershipRecord {
	out := make([]contracts.MembershipRecord, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, contracts.MembershipRecord{Date: day(2018, 12, 1), Symbol: s, IndexName: testIndex, IsMember: true})
	}
	return out
}

// scenarioLevels: 14 months (Jan 2019 .. Feb 2020)
//
//	momentum on 2020-01-31 = P(Dec 2019) / P(Jan 2019) − 1
//	AAA +30%, BBB +10%, CCC −25%
//	forward Jan→Feb 2020: AAA +10%, BBB +2%, CCC +5%
func scenarioLevels() map[string][]float64 {
	return map[string][]float64{
		//       J19  F    M    A    M    J    J    A    S    O    N    D19  J20  F20
		"AAA": {100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 130, 90, 99},
		"BBB": {50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 55, 50, 51},
		"CCC": {80, 79, 78, 77, 76, 75, 74, 73, 72, 71, 70, 60, 60, 63},
	}
}

func scenarioIndex(t *testing.T, drop ...contracts.PriceBar) *s1_universe.Index {
	t.Helper()
	return s1_universe.NewIndex(stepPanel(t, scenarioLevels(), drop...), members("AAA", "BBB", "CCC"), nil)
}

func scenarioConfig(k int) *strategyconfig.Config {
	cfg := strategyconfig.Default()
	cfg.Meta.StrategyID = "scenario"
	cfg.Universe.Index = testIndex
	cfg.Signals.LookbackMonths = 12
	cfg.Signals.SkipMonths = 1
	cfg.Portfolio.HoldingMonths = k
	cfg.Backtest.StartDate = day(2020, 1, 1)
	cfg.Backtest.EndDate = day(2020, 2, 29)
	return cfg
}
