package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/portfolio"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/s2_signals"
	"github.com/hvkconsulling1/momo-sub000/internal/selection"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// Scenario A: 3 symbols, 14 months, lookback 12 / skip 1, K = 1
func TestEngine_ScenarioA(t *testing.T) {
	engine, err := NewEngine(scenarioConfig(1), scenarioIndex(t), nil)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), "run-a")
	require.NoError(t, err)

	require.Len(t, result.Returns, 1)
	r := result.Returns[0]
	assert.Equal(t, day(2020, 1, 31), r.Date)
	assert.Equal(t, day(2020, 2, 28), r.EndDate)
	assert.Equal(t, 1, r.LongCount)
	assert.Equal(t, 1, r.ShortCount)
	assert.Equal(t, 1, r.ActiveCohorts)
	// +1 × AAA(+10%) − 1 × CCC(+5%)
	assert.InDelta(t, 0.05, r.PortfolioReturn, 1e-12)
	assert.InDelta(t, 1.05, r.CumulativeValue, 1e-12)
	assert.InDelta(t, 1.0, r.Turnover, 1e-12, "first period trades out of an empty book")
	assert.False(t, r.Degenerate)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, "run-a", result.RunID)
	assert.Equal(t, "scenario", result.StrategyID)
	assert.Len(t, result.ConfigHash, 64)
	assert.Contains(t, result.ConfigYAML, "lookback_months: 12")
	assert.Equal(t, 1, result.Metrics.Periods)
	assert.True(t, math.IsNaN(result.Metrics.Sharpe))
}

// Scenario C: missing forward return counts as zero and is reported
func TestEngine_ScenarioC(t *testing.T) {
	index := scenarioIndex(t, contracts.PriceBar{Symbol: "CCC", Date: day(2020, 2, 28)})
	engine, err := NewEngine(scenarioConfig(1), index, nil)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Returns, 1)
	assert.InDelta(t, 0.10, result.Returns[0].PortfolioReturn, 1e-12)
	assert.Equal(t, 1, result.Returns[0].MissingReturns)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, contracts.WarnMissingForwardReturn, w.Code)
	assert.Equal(t, "CCC", w.Symbol)
	assert.Equal(t, day(2020, 1, 31), w.Date)
	assert.Equal(t, 1, result.Metrics.WarningCount)
	assert.NotEmpty(t, result.RunID, "generated when empty")
}

// Scenario D: every score undefined → empty sides, zero return, no error
func TestEngine_ScenarioD(t *testing.T) {
	cfg := scenarioConfig(1)
	cfg.Universe.MinHistoryMonths = 0
	cfg.Backtest.StartDate = day(2019, 6, 1)

	engine, err := NewEngine(cfg, scenarioIndex(t), nil)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Returns, 8)
	for _, r := range result.Returns[:7] {
		assert.True(t, r.Degenerate, r.Date)
		assert.Equal(t, 0.0, r.PortfolioReturn)
		assert.Equal(t, 0, r.LongCount+r.ShortCount)
		assert.Equal(t, 1.0, r.CumulativeValue)
	}
	last := result.Returns[7]
	assert.False(t, last.Degenerate)
	assert.InDelta(t, 0.05, last.PortfolioReturn, 1e-12)

	degenerate := 0
	for _, w := range result.Warnings {
		if w.Code == contracts.WarnDegenerateSignal {
			degenerate++
		}
	}
	assert.Equal(t, 7, degenerate)
	assert.Equal(t, 7, result.Metrics.ZeroPeriods)
}

// 중간 퇴화 기간: 2020년 3월 전 종목 편출, K = 3
func TestEngine_DegenerateMidRun(t *testing.T) {
	cfg := scenarioConfig(3)
	cfg.Backtest.EndDate = day(2020, 6, 30)

	base := rotatingIndex(t)
	records := members("AAA", "BBB", "CCC", "DDD")
	for _, s := range []string{"AAA", "BBB", "CCC", "DDD"} {
		records = append(records,
			contracts.MembershipRecord{Date: day(2020, 3, 1), Symbol: s, IndexName: testIndex, IsMember: false},
			contracts.MembershipRecord{Date: day(2020, 4, 1), Symbol: s, IndexName: testIndex, IsMember: true},
		)
	}
	index := s1_universe.NewIndex(base.Panel(), records, nil)

	engine, err := NewEngine(cfg, index, nil)
	require.NoError(t, err)
	result, err := engine.Run(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.Returns, 5)

	before := result.Returns[1]
	march := result.Returns[2]
	assert.Equal(t, day(2020, 3, 31), march.Date)
	assert.True(t, march.Degenerate)
	assert.Equal(t, 0.0, march.PortfolioReturn)
	assert.Equal(t, 0, march.LongCount)
	assert.Equal(t, 0, march.ShortCount)
	assert.Equal(t, before.CumulativeValue, march.CumulativeValue)
	// 창은 계속 전진: min(K, n) 유지
	assert.Equal(t, 3, march.ActiveCohorts)

	for i, r := range result.Returns {
		assert.Equal(t, i == 2, r.Degenerate, r.Date)
	}
	april := result.Returns[3]
	assert.Equal(t, 3, april.ActiveCohorts)
	assert.Positive(t, april.LongCount)
	assert.Positive(t, april.ShortCount)
}

// rotatingIndex has leadership changing month to month over 18 months
func rotatingIndex(t *testing.T) *s1_universe.Index {
	levels := map[string][]float64{}
	for i := 0; i < 18; i++ {
		f := float64(i)
		levels["AAA"] = append(levels["AAA"], 100*math.Pow(1.02, f))
		levels["BBB"] = append(levels["BBB"], 100*(1+0.2*math.Sin(f)))
		levels["CCC"] = append(levels["CCC"], 100*math.Pow(0.99, f))
		levels["DDD"] = append(levels["DDD"], 100+7*float64(i%4))
	}
	return s1_universe.NewIndex(stepPanel(t, levels), members("AAA", "BBB", "CCC", "DDD"), nil)
}

// Scenario B at engine level: each period's return equals the weighted sum
// under the mean of exactly the last min(K, n) sub-portfolios
func TestEngine_ScenarioB_ReconstructFromHistory(t *testing.T) {
	const k = 3
	cfg := scenarioConfig(k)
	cfg.Backtest.EndDate = day(2020, 6, 30)
	index := rotatingIndex(t)

	engine, err := NewEngine(cfg, index, nil)
	require.NoError(t, err)
	result, err := engine.Run(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.Returns, 5)

	// 같은 구성요소로 서브 포트폴리오 이력을 독립적으로 재구성
	ctx := context.Background()
	panel := index.Panel()
	builder := s1_universe.NewBuilder(index, nil)
	calc, _ := s2_signals.NewMomentumCalculator(12, 1, nil)
	ranker, _ := selection.NewRanker(cfg.Selection.LongPct(), cfg.Selection.ShortPct(), 1, nil)
	constructor, _ := portfolio.NewConstructor(portfolio.DefaultConstraints(), nil)

	dates := result.RebalanceDates
	var history []contracts.SubPortfolio
	for i, r := range result.Returns {
		snap, err := builder.Build(ctx, testIndex, dates[i], 12, nil)
		require.NoError(t, err)
		signals, err := calc.Calculate(ctx, panel, dates[i], snap.Symbols)
		require.NoError(t, err)
		sel, err := ranker.Select(ctx, signals)
		require.NoError(t, err)
		sub, err := constructor.Construct(ctx, sel)
		require.NoError(t, err)
		history = append(history, sub)

		from := len(history) - k
		if from < 0 {
			from = 0
		}
		active := history[from:]
		assert.Equal(t, len(active), r.ActiveCohorts)

		want := 0.0
		for _, symbol := range panel.Symbols() {
			w := 0.0
			for _, h := range active {
				w += h.Weight(symbol)
			}
			w /= float64(len(active))
			start, _ := panel.Bar(symbol, dates[i])
			end, _ := panel.Bar(symbol, dates[i+1])
			want += w * (end.Close/start.Close - 1)
		}
		assert.InDelta(t, want, r.PortfolioReturn, 1e-12, "period %d", i)
	}
}

func TestEngine_OverlapReducesTurnover(t *testing.T) {
	index := rotatingIndex(t)
	turnover := func(k int) float64 {
		cfg := scenarioConfig(k)
		cfg.Backtest.EndDate = day(2020, 6, 30)
		engine, err := NewEngine(cfg, index, nil)
		require.NoError(t, err)
		result, err := engine.Run(context.Background(), "")
		require.NoError(t, err)
		return result.Metrics.AvgTurnover
	}
	assert.Less(t, turnover(3), turnover(1))
}

func TestEngine_Idempotent(t *testing.T) {
	cfg := scenarioConfig(3)
	cfg.Backtest.EndDate = day(2020, 6, 30)
	index := rotatingIndex(t)

	encode := func() ([]byte, []byte) {
		engine, err := NewEngine(cfg, index, nil)
		require.NoError(t, err)
		result, err := engine.Run(context.Background(), "")
		require.NoError(t, err)
		returns, err := json.Marshal(result.Returns)
		require.NoError(t, err)
		perf, err := json.Marshal(result.Metrics)
		require.NoError(t, err)
		return returns, perf
	}

	r1, m1 := encode()
	r2, m2 := encode()
	assert.Equal(t, r1, r2)
	assert.Equal(t, m1, m2)
}

func TestEngine_CoverageErrors(t *testing.T) {
	index := scenarioIndex(t)

	noDates := scenarioConfig(1)
	noDates.Backtest.StartDate = day(2030, 1, 1)
	noDates.Backtest.EndDate = day(2030, 12, 31)

	oneDate := scenarioConfig(1)
	oneDate.Backtest.StartDate = day(2020, 2, 1)

	unknown := scenarioConfig(1)
	unknown.Universe.Index = "NOPE"

	tests := []struct {
		name string
		cfg  *strategyconfig.Config
	}{
		{"no panel dates in range", noDates},
		{"single rebalance date", oneDate},
		{"unknown index", unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg, index, nil)
			require.NoError(t, err)

			_, err = engine.Run(context.Background(), "")
			if !errors.Is(err, contracts.ErrData) {
				t.Errorf("expected DataError, got %v", err)
			}
		})
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := scenarioConfig(1)
	cfg.Signals.SkipMonths = 12

	_, err := NewEngine(cfg, scenarioIndex(t), nil)
	assert.True(t, errors.Is(err, contracts.ErrConfiguration))
}

func TestEngine_Cancelled(t *testing.T) {
	engine, err := NewEngine(scenarioConfig(1), scenarioIndex(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Recorder(t *testing.T) {
	recorder := metrics.New()
	engine, err := NewEngine(scenarioConfig(1), scenarioIndex(t), nil)
	require.NoError(t, err)
	engine.WithRecorder(recorder)

	_, err = engine.Run(context.Background(), "")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(recorder.Registry(), "momo_backtest_runs_total", "momo_stage_duration_seconds", "momo_periods_processed_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}
