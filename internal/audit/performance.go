package audit

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

const daysPerYear = 365.25

// Calculator implements S7: summary statistics over a ReturnRecord series
// ⭐ SSOT: S7 성과 지표 계산은 여기서만
// 모든 지표는 퇴화 입력에서도 정의됨 (정의 불가 시 NaN, 패닉/에러 없음)
type Calculator struct {
	periodsPerYear int
	riskFreeRate   float64 // 연율
	logger         *logger.Logger
}

// NewCalculator creates a new metrics calculator
func NewCalculator(periodsPerYear int, riskFreeRate float64, log *logger.Logger) *Calculator {
	if periodsPerYear < 1 {
		periodsPerYear = 12
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Calculator{
		periodsPerYear: periodsPerYear,
		riskFreeRate:   riskFreeRate,
		logger:         log.WithStage(contracts.StageAudit.ShortName()),
	}
}

// Calculate summarizes records; warningCount is copied into the result
func (c *Calculator) Calculate(records []contracts.ReturnRecord, warningCount int) contracts.PerformanceMetrics {
	m := contracts.PerformanceMetrics{
		Periods:        len(records),
		PeriodsPerYear: c.periodsPerYear,
		RiskFreeRate:   c.riskFreeRate,
		FinalValue:     1.0,
		CAGR:           math.NaN(),
		Sharpe:         math.NaN(),
		Sortino:        math.NaN(),
		WarningCount:   warningCount,
	}
	if len(records) == 0 {
		return m
	}

	returns := make([]float64, len(records))
	turnovers := make([]float64, len(records))
	values := make([]float64, len(records))
	for i, r := range records {
		returns[i] = r.PortfolioReturn
		turnovers[i] = r.Turnover
		values[i] = r.CumulativeValue
		if r.PortfolioReturn > 0 {
			m.HitRate++
		}
		if r.PortfolioReturn == 0 {
			m.ZeroPeriods++
		}
	}
	m.HitRate /= float64(len(records))

	m.StartDate = records[0].Date
	m.EndDate = records[len(records)-1].EndDate
	m.FinalValue = values[len(values)-1]
	m.TotalReturn = m.FinalValue - 1.0
	m.CAGR = c.cagr(m.FinalValue, m.EndDate.Sub(m.StartDate).Hours()/24/daysPerYear)
	m.Volatility, m.Sharpe = c.sharpe(returns)
	m.Sortino = c.sortino(returns)
	m.MaxDrawdown = MaxDrawdown(values)
	m.AvgTurnover = stat.Mean(turnovers, nil)

	c.logger.WithFields(map[string]interface{}{
		"periods":      m.Periods,
		"total_return": m.TotalReturn,
		"cagr":         m.CAGR,
		"sharpe":       m.Sharpe,
		"max_drawdown": m.MaxDrawdown,
	}).Debug("Performance metrics calculated")

	return m
}

func (c *Calculator) cagr(final, years float64) float64 {
	if years <= 0 {
		return math.NaN()
	}
	return math.Pow(final, 1.0/years) - 1.0
}

// sharpe returns (annualized volatility, annualized Sharpe)
// n < 2 → (0, NaN); std = 0 → NaN Sharpe
func (c *Calculator) sharpe(returns []float64) (float64, float64) {
	if len(returns) < 2 {
		return 0, math.NaN()
	}
	mean, std := stat.MeanStdDev(returns, nil)
	annualizer := math.Sqrt(float64(c.periodsPerYear))
	vol := std * annualizer
	if std == 0 {
		return vol, math.NaN()
	}
	return vol, (mean - c.periodRiskFree()) / std * annualizer
}

// sortino uses the downside deviation below the per-period risk-free rate
func (c *Calculator) sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	rf := c.periodRiskFree()
	downside := make([]float64, len(returns))
	for i, r := range returns {
		downside[i] = math.Min(r-rf, 0)
		downside[i] *= downside[i]
	}
	dd := math.Sqrt(stat.Mean(downside, nil))
	if dd == 0 {
		return math.NaN()
	}
	return (stat.Mean(returns, nil) - rf) / dd * math.Sqrt(float64(c.periodsPerYear))
}

func (c *Calculator) periodRiskFree() float64 {
	return c.riskFreeRate / float64(c.periodsPerYear)
}

// MaxDrawdown returns min(value/peak − 1) with the running peak starting at 1.0
func MaxDrawdown(values []float64) float64 {
	peak := 1.0
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := v/peak - 1.0; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
