package audit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

func monthEnd(i int) time.Time {
	return contracts.MonthEnd(time.Date(2020, time.January+time.Month(i), 1, 0, 0, 0, 0, time.UTC))
}

// series builds records from period returns, compounding from 1.0
func series(returns ...float64) []contracts.ReturnRecord {
	value := 1.0
	out := make([]contracts.ReturnRecord, len(returns))
	for i, r := range returns {
		value *= 1 + r
		out[i] = contracts.ReturnRecord{
			Date:            monthEnd(i),
			EndDate:         monthEnd(i + 1),
			PortfolioReturn: r,
			CumulativeValue: value,
			Turnover:        0.1 * float64(i+1),
		}
	}
	return out
}

func TestCalculator_Empty(t *testing.T) {
	m := NewCalculator(12, 0, nil).Calculate(nil, 0)

	assert.Equal(t, 0, m.Periods)
	assert.True(t, math.IsNaN(m.Sharpe))
	assert.True(t, math.IsNaN(m.CAGR))
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 1.0, m.FinalValue)
}

func TestCalculator_SinglePeriod(t *testing.T) {
	m := NewCalculator(12, 0, nil).Calculate(series(0.1), 2)

	assert.Equal(t, 1, m.Periods)
	assert.Equal(t, 0.0, m.Volatility)
	assert.True(t, math.IsNaN(m.Sharpe), "Sharpe undefined for one period")
	assert.True(t, math.IsNaN(m.Sortino))
	assert.InDelta(t, 0.1, m.TotalReturn, 1e-12)
	assert.Equal(t, 2, m.WarningCount)

	years := monthEnd(1).Sub(monthEnd(0)).Hours() / 24 / 365.25
	assert.InDelta(t, math.Pow(1.1, 1/years)-1, m.CAGR, 1e-12)
}

func TestCalculator_KnownSeries(t *testing.T) {
	returns := []float64{0.1, -0.05, 0.02, 0.03}
	m := NewCalculator(12, 0, nil).Calculate(series(returns...), 0)

	mean := 0.025
	std := math.Sqrt((0.075*0.075*2 + 0.005*0.005*2) / 3)

	assert.Equal(t, 4, m.Periods)
	assert.Equal(t, monthEnd(0), m.StartDate)
	assert.Equal(t, monthEnd(4), m.EndDate)
	assert.InDelta(t, std*math.Sqrt(12), m.Volatility, 1e-12)
	assert.InDelta(t, mean/std*math.Sqrt(12), m.Sharpe, 1e-12)
	assert.InDelta(t, -0.05, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.25, m.AvgTurnover, 1e-12)
	assert.InDelta(t, 0.75, m.HitRate, 1e-12)
	assert.InDelta(t, 1.1*0.95*1.02*1.03-1, m.TotalReturn, 1e-12)

	downside := math.Sqrt(0.05 * 0.05 / 4)
	assert.InDelta(t, mean/downside*math.Sqrt(12), m.Sortino, 1e-12)
}

func TestCalculator_RiskFreeRate(t *testing.T) {
	returns := []float64{0.01, 0.03, 0.02, 0.04}
	m := NewCalculator(4, 0.04, nil).Calculate(series(returns...), 0)

	mean := 0.025
	std := math.Sqrt((0.015*0.015 + 0.005*0.005 + 0.005*0.005 + 0.015*0.015) / 3)
	assert.InDelta(t, (mean-0.01)/std*2, m.Sharpe, 1e-12)
	assert.Equal(t, 4, m.PeriodsPerYear)
	assert.Equal(t, 0.04, m.RiskFreeRate)
}

func TestCalculator_ConstantReturnsSharpeNaN(t *testing.T) {
	m := NewCalculator(12, 0, nil).Calculate(series(0, 0, 0), 0)

	assert.True(t, math.IsNaN(m.Sharpe))
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 3, m.ZeroPeriods)
	assert.InDelta(t, 0.0, m.CAGR, 1e-12)
}

func TestCalculator_CAGR(t *testing.T) {
	records := []contracts.ReturnRecord{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), PortfolioReturn: 0.1, CumulativeValue: 1.1},
		{Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), PortfolioReturn: 0.1, CumulativeValue: 1.21},
	}
	m := NewCalculator(1, 0, nil).Calculate(records, 0)

	years := 731.0 / 365.25
	assert.InDelta(t, math.Pow(1.21, 1/years)-1, m.CAGR, 1e-12)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic up", []float64{1.1, 1.2, 1.3}, 0},
		{"below initial peak", []float64{0.9, 0.95}, -0.1},
		{"new peak then fall", []float64{1.2, 0.9, 1.5, 1.2}, -0.25},
	}
	for _, tt := range tests {
		if got := MaxDrawdown(tt.values); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: MaxDrawdown = %v, want %v", tt.name, got, tt.want)
		}
	}
}
