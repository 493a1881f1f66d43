package s2_signals

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// monthEnds returns n consecutive month-end dates starting at (y, m)
func monthEnds(y int, m time.Month, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = contracts.MonthEnd(time.Date(y, m+time.Month(i), 1, 0, 0, 0, 0, time.UTC))
	}
	return out
}

func panelFrom(t *testing.T, dates []time.Time, closes map[string][]float64) *contracts.PricePanel {
	t.Helper()
	var bars []contracts.PriceBar
	for symbol, series := range closes {
		for i, c := range series {
			bars = append(bars, contracts.PriceBar{Date: dates[i], Symbol: symbol, Close: c})
		}
	}
	panel, err := contracts.NewPricePanel(bars)
	require.NoError(t, err)
	return panel
}

// Scenario A: 3 symbols, 14 months, lookback 12 / skip 1, scored on month 13
func TestMomentumCalculator_ScenarioA(t *testing.T) {
	dates := monthEnds(2019, time.January, 14)
	panel := panelFrom(t, dates, map[string][]float64{
		//       J19  F    M    A    M    J    J    A    S    O    N    D19  J20  F20
		"AAA": {100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 130, 90, 95},
		"BBB": {50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 55, 70, 75},
		"CCC": {80, 79, 78, 77, 76, 75, 74, 73, 72, 71, 70, 60, 61, 62},
	})

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	set, err := calc.Calculate(context.Background(), panel, dates[12], []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)

	// P(2019-12-31) / P(2019-01-31) − 1, 최근 1개월(2020-01) 제외
	assert.InDelta(t, 0.30, set.Get("AAA").Value, 1e-12)
	assert.InDelta(t, 0.10, set.Get("BBB").Value, 1e-12)
	assert.InDelta(t, -0.25, set.Get("CCC").Value, 1e-12)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, set.Defined())
}

func TestMomentumCalculator_Undefined(t *testing.T) {
	dates := monthEnds(2019, time.January, 14)
	// 이력 부족: 2019-03 부터 상장
	var late []contracts.PriceBar
	for _, d := range dates[2:] {
		late = append(late, contracts.PriceBar{Date: d, Symbol: "LATE", Close: 10})
	}
	panel := panelFrom(t, dates, map[string][]float64{
		"FULL": {100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 120, 121, 122},
		"ZERO": {0, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 120, 121, 122},
		"NAN":  {100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, math.NaN(), 121, 122},
	})
	merged, err := contracts.NewPricePanel(append(panel.Bars(), late...))
	require.NoError(t, err)

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	set, err := calc.Calculate(context.Background(), merged, dates[12], []string{"FULL", "ZERO", "NAN", "LATE", "MISSING"})
	require.NoError(t, err)

	tests := []struct {
		symbol  string
		defined bool
	}{
		{"FULL", true},
		{"ZERO", false},
		{"NAN", false},
		{"LATE", false},
		{"MISSING", false},
	}
	for _, tt := range tests {
		if got := set.Get(tt.symbol).Defined; got != tt.defined {
			t.Errorf("%s: defined = %v, want %v", tt.symbol, got, tt.defined)
		}
	}
	assert.Equal(t, 5, set.Count(), "undefined symbols stay in the set")
}

func TestMomentumCalculator_SkipZeroUsesDate(t *testing.T) {
	dates := monthEnds(2019, time.January, 13)
	panel := panelFrom(t, dates, map[string][]float64{
		"AAA": {100, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 150},
	})

	calc, err := NewMomentumCalculator(12, 0, nil)
	require.NoError(t, err)

	set, err := calc.Calculate(context.Background(), panel, dates[12], []string{"AAA"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, set.Get("AAA").Value, 1e-12)
}

func TestMomentumCalculator_AnchorsClampToMonthEnd(t *testing.T) {
	// 2020-03-31 − 1개월 = 2020-02-29, 그 이전 마지막 봉을 사용
	bars := []contracts.PriceBar{
		{Date: time.Date(2019, 3, 29, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 100},
		{Date: time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 120},
		{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 500},
		{Date: time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 130},
	}
	panel, err := contracts.NewPricePanel(bars)
	require.NoError(t, err)

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	set, err := calc.Calculate(context.Background(), panel, time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC), []string{"AAA"})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, set.Get("AAA").Value, 1e-12)
}

// 월말 거래일은 달력 월말 기준으로 앵커 (2020-02-28 − 1개월 = 2020-01-31)
func TestMomentumCalculator_MonthEndAnchors(t *testing.T) {
	bars := []contracts.PriceBar{
		{Date: time.Date(2019, 2, 28, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 100},
		{Date: time.Date(2020, 1, 28, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 300},
		{Date: time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 125},
		{Date: time.Date(2020, 2, 14, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 140},
		{Date: time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC), Symbol: "AAA", Close: 150},
	}
	panel, err := contracts.NewPricePanel(bars)
	require.NoError(t, err)

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		date time.Time
		want float64
	}{
		// 1월 말 봉(125) 사용, 1월 28일(300) 아님
		{"month end", time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC), 0.25},
		// 월중 날짜는 일자 그대로: 2019-02-14 이전 봉 없음 → undefined
		{"mid month", time.Date(2020, 2, 14, 0, 0, 0, 0, time.UTC), math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := calc.Calculate(context.Background(), panel, tt.date, []string{"AAA"})
			if math.IsNaN(tt.want) {
				require.Error(t, err)
				assert.False(t, set.Get("AAA").Defined)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, set.Get("AAA").Value, 1e-12)
		})
	}
}

func TestMomentumCalculator_AllUndefinedIsSignalError(t *testing.T) {
	dates := monthEnds(2019, time.January, 3)
	panel := panelFrom(t, dates, map[string][]float64{
		"AAA": {10, 11, 12},
		"BBB": {20, 21, 22},
	})

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	set, err := calc.Calculate(context.Background(), panel, dates[2], []string{"AAA", "BBB"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSignal))
	require.NotNil(t, set)
	assert.True(t, set.AllUndefined())
	assert.Equal(t, 2, set.Count())
}

func TestMomentumCalculator_DoesNotMutatePanel(t *testing.T) {
	dates := monthEnds(2019, time.January, 14)
	panel := panelFrom(t, dates, map[string][]float64{
		"AAA": {100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 130, 90, 95},
	})
	before := panel.Bars()

	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)
	_, err = calc.Calculate(context.Background(), panel, dates[13], []string{"AAA"})
	require.NoError(t, err)

	assert.Equal(t, before, panel.Bars())
}

func TestNewMomentumCalculator_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		lookback int
		skip     int
	}{
		{"skip equals lookback", 12, 12},
		{"skip above lookback", 6, 7},
		{"negative skip", 12, -1},
		{"zero lookback", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMomentumCalculator(tt.lookback, tt.skip, nil)
			if !errors.Is(err, contracts.ErrConfiguration) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestMomentumCalculator_Cancelled(t *testing.T) {
	calc, err := NewMomentumCalculator(12, 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = calc.Calculate(ctx, nil, time.Now(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
