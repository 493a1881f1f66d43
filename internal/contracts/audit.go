package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// ReturnRecord is one rebalance period [Date, EndDate) of the backtest
// ⭐ SSOT: Backtest → S7 수익률 시계열 전달
type ReturnRecord struct {
	Date            time.Time `json:"date"`     // 편입 기준일 t
	EndDate         time.Time `json:"end_date"` // 다음 리밸런싱일 t+1
	PortfolioReturn float64   `json:"portfolio_return"`
	CumulativeValue float64   `json:"cumulative_value"` // t+1 시점 누적 가치 (시작 1.0)
	Turnover        float64   `json:"turnover"`
	LongCount       int       `json:"long_count"`
	ShortCount      int       `json:"short_count"`
	ActiveCohorts   int       `json:"active_cohorts"`
	MissingReturns  int       `json:"missing_returns"`
	Degenerate      bool      `json:"degenerate"` // 모든 시그널 undefined
}

// WarningCode classifies absorbed per-date conditions
type WarningCode string

const (
	WarnMissingForwardReturn WarningCode = "missing_forward_return"
	WarnDegenerateSignal     WarningCode = "degenerate_signal"
	WarnEmptySide            WarningCode = "empty_side"
)

// Warning is a condition absorbed inside the per-date loop
type Warning struct {
	Date    time.Time   `json:"date"`
	Symbol  string      `json:"symbol,omitempty"`
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// PerformanceMetrics summarizes a full ReturnRecord series
// NaN means undefined (e.g. Sharpe of a single period) and serializes as null
type PerformanceMetrics struct {
	Periods        int       `json:"periods"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	PeriodsPerYear int       `json:"periods_per_year"`
	RiskFreeRate   float64   `json:"risk_free_rate"`

	TotalReturn  float64 `json:"total_return"`
	CAGR         float64 `json:"cagr"`
	Volatility   float64 `json:"volatility"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	AvgTurnover  float64 `json:"avg_turnover"`
	FinalValue   float64 `json:"final_value"`
	HitRate      float64 `json:"hit_rate"`
	ZeroPeriods  int     `json:"zero_periods"`
	WarningCount int     `json:"warning_count"`
}

// MarshalJSON writes NaN and Inf fields as null
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	type alias struct {
		Periods        int       `json:"periods"`
		StartDate      time.Time `json:"start_date"`
		EndDate        time.Time `json:"end_date"`
		PeriodsPerYear int       `json:"periods_per_year"`
		RiskFreeRate   float64   `json:"risk_free_rate"`
		TotalReturn    *float64  `json:"total_return"`
		CAGR           *float64  `json:"cagr"`
		Volatility     *float64  `json:"volatility"`
		Sharpe         *float64  `json:"sharpe"`
		Sortino        *float64  `json:"sortino"`
		MaxDrawdown    *float64  `json:"max_drawdown"`
		AvgTurnover    *float64  `json:"avg_turnover"`
		FinalValue     *float64  `json:"final_value"`
		HitRate        *float64  `json:"hit_rate"`
		ZeroPeriods    int       `json:"zero_periods"`
		WarningCount   int       `json:"warning_count"`
	}
	return json.Marshal(alias{
		Periods:        m.Periods,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		PeriodsPerYear: m.PeriodsPerYear,
		RiskFreeRate:   m.RiskFreeRate,
		TotalReturn:    finite(m.TotalReturn),
		CAGR:           finite(m.CAGR),
		Volatility:     finite(m.Volatility),
		Sharpe:         finite(m.Sharpe),
		Sortino:        finite(m.Sortino),
		MaxDrawdown:    finite(m.MaxDrawdown),
		AvgTurnover:    finite(m.AvgTurnover),
		FinalValue:     finite(m.FinalValue),
		HitRate:        finite(m.HitRate),
		ZeroPeriods:    m.ZeroPeriods,
		WarningCount:   m.WarningCount,
	})
}

// UnmarshalJSON reads null fields back as NaN
func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		Periods        int       `json:"periods"`
		StartDate      time.Time `json:"start_date"`
		EndDate        time.Time `json:"end_date"`
		PeriodsPerYear int       `json:"periods_per_year"`
		RiskFreeRate   float64   `json:"risk_free_rate"`
		TotalReturn    *float64  `json:"total_return"`
		CAGR           *float64  `json:"cagr"`
		Volatility     *float64  `json:"volatility"`
		Sharpe         *float64  `json:"sharpe"`
		Sortino        *float64  `json:"sortino"`
		MaxDrawdown    *float64  `json:"max_drawdown"`
		AvgTurnover    *float64  `json:"avg_turnover"`
		FinalValue     *float64  `json:"final_value"`
		HitRate        *float64  `json:"hit_rate"`
		ZeroPeriods    int       `json:"zero_periods"`
		WarningCount   int       `json:"warning_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = PerformanceMetrics{
		Periods:        raw.Periods,
		StartDate:      raw.StartDate,
		EndDate:        raw.EndDate,
		PeriodsPerYear: raw.PeriodsPerYear,
		RiskFreeRate:   raw.RiskFreeRate,
		TotalReturn:    orNaN(raw.TotalReturn),
		CAGR:           orNaN(raw.CAGR),
		Volatility:     orNaN(raw.Volatility),
		Sharpe:         orNaN(raw.Sharpe),
		Sortino:        orNaN(raw.Sortino),
		MaxDrawdown:    orNaN(raw.MaxDrawdown),
		AvgTurnover:    orNaN(raw.AvgTurnover),
		FinalValue:     orNaN(raw.FinalValue),
		HitRate:        orNaN(raw.HitRate),
		ZeroPeriods:    raw.ZeroPeriods,
		WarningCount:   raw.WarningCount,
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
