package strategyconfig

import (
	"math"
	"time"
)

// Selection methods
const (
	MethodDecile   = "decile"
	MethodQuintile = "quintile"
	MethodTertile  = "tertile"
)

// Rebalance frequencies
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
)

// Config는 모멘텀 백테스트 1회 실행의 전체 설정
// ⭐ SSOT: 전략 파라미터는 이 구조체로만 전달 (로드 시 1회 검증, 이후 읽기 전용)
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Signals   Signals   `yaml:"signals" json:"signals"`
	Selection Selection `yaml:"selection" json:"selection"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Backtest  Backtest  `yaml:"backtest" json:"backtest"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" default:"xs_momentum" validate:"required"`
	Version    string `yaml:"version" json:"version" default:"v1"`
}

// Universe S1: 시점 기준 투자 가능 풀
type Universe struct {
	Index            string   `yaml:"index" json:"index" validate:"required"`
	MinHistoryMonths int      `yaml:"min_history_months" json:"min_history_months" default:"12" validate:"gte=0"`
	Symbols          []string `yaml:"symbols,omitempty" json:"symbols,omitempty" validate:"dive,required"` // 선택: 허용 종목
}

// Signals S2: 모멘텀 (lookback - skip 누적수익률)
type Signals struct {
	LookbackMonths int `yaml:"lookback_months" json:"lookback_months" default:"12" validate:"gte=1"`
	SkipMonths     int `yaml:"skip_months" json:"skip_months" default:"1" validate:"gte=0"`
}

// Selection S3: 퍼센타일 기준 롱/숏 선정
// 퍼센타일 미지정 시 method 에서 유도
type Selection struct {
	Method          string   `yaml:"method" json:"method" default:"decile" validate:"oneof=decile quintile tertile"`
	LongPercentile  *float64 `yaml:"long_percentile,omitempty" json:"long_percentile,omitempty" validate:"omitempty,gte=0,lte=1"`
	ShortPercentile *float64 `yaml:"short_percentile,omitempty" json:"short_percentile,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinSideCount    int      `yaml:"min_side_count" json:"min_side_count" default:"1" validate:"gte=1"`
}

// Portfolio S4/S5: 동일가중 + K 코호트 중첩
type Portfolio struct {
	HoldingMonths      int     `yaml:"holding_months" json:"holding_months" default:"6" validate:"gte=1"`
	RebalanceFrequency string  `yaml:"rebalance_frequency" json:"rebalance_frequency" default:"monthly" validate:"oneof=monthly quarterly"`
	LongExposure       float64 `yaml:"long_exposure" json:"long_exposure" default:"1.0" validate:"gte=0"`
	ShortExposure      float64 `yaml:"short_exposure" json:"short_exposure" default:"1.0" validate:"gte=0"`
}

// Backtest 기간 및 성과 지표 설정
type Backtest struct {
	StartDate    time.Time `yaml:"start_date" json:"start_date" validate:"required"`
	EndDate      time.Time `yaml:"end_date" json:"end_date" validate:"required"`
	RiskFreeRate float64   `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=-1,lte=1"` // 연율
}

// LongPct returns the effective long threshold
func (s Selection) LongPct() float64 {
	if s.LongPercentile != nil {
		return *s.LongPercentile
	}
	long, _ := methodPercentiles(s.Method)
	return long
}

// ShortPct returns the effective short threshold
func (s Selection) ShortPct() float64 {
	if s.ShortPercentile != nil {
		return *s.ShortPercentile
	}
	_, short := methodPercentiles(s.Method)
	return short
}

// methodPercentiles maps a selection method to (long, short) thresholds
func methodPercentiles(method string) (float64, float64) {
	switch method {
	case MethodQuintile:
		return 0.8, 0.2
	case MethodTertile:
		return 2.0 / 3.0, 1.0 / 3.0
	default:
		return 0.9, 0.1
	}
}

// MonthsPerPeriod returns calendar months between rebalances
func (p Portfolio) MonthsPerPeriod() int {
	if p.RebalanceFrequency == FrequencyQuarterly {
		return 3
	}
	return 1
}

// PeriodsPerYear returns rebalance periods per year (annualization factor)
func (p Portfolio) PeriodsPerYear() int {
	return 12 / p.MonthsPerPeriod()
}

// HoldingPeriods returns K, the number of overlapping cohorts, in rebalance periods
// 분기 리밸런싱이면 holding_months 를 분기 단위로 올림
func (p Portfolio) HoldingPeriods() int {
	k := int(math.Ceil(float64(p.HoldingMonths) / float64(p.MonthsPerPeriod())))
	if k < 1 {
		return 1
	}
	return k
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	out := *c
	if c.Universe.Symbols != nil {
		out.Universe.Symbols = append([]string(nil), c.Universe.Symbols...)
	}
	if c.Selection.LongPercentile != nil {
		v := *c.Selection.LongPercentile
		out.Selection.LongPercentile = &v
	}
	if c.Selection.ShortPercentile != nil {
		v := *c.Selection.ShortPercentile
		out.Selection.ShortPercentile = &v
	}
	return &out
}

// Float returns a pointer to v, for optional percentile fields
func Float(v float64) *float64 {
	return &v
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash     string    `json:"config_hash"`
	ConfigYAML     string    `json:"config_yaml"`
	StrategyID     string    `json:"strategy_id"`
	GitCommit      string    `json:"git_commit"`
	DataSnapshotID string    `json:"data_snapshot_id"`
	CreatedAt      time.Time `json:"created_at"`
}
