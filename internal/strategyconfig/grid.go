package strategyconfig

import (
	"fmt"
)

// Grid enumerates parameter sweeps over a base Config
// 빈 축은 base 값을 그대로 사용
type Grid struct {
	LookbackMonths   []int    `yaml:"lookback_months" json:"lookback_months"`
	SkipMonths       []int    `yaml:"skip_months" json:"skip_months"`
	HoldingMonths    []int    `yaml:"holding_months" json:"holding_months"`
	SelectionMethods []string `yaml:"selection_methods" json:"selection_methods"`
}

// Size returns the number of variants Expand will produce
func (g Grid) Size() int {
	return axisLen(len(g.LookbackMonths)) * axisLen(len(g.SkipMonths)) *
		axisLen(len(g.HoldingMonths)) * axisLen(len(g.SelectionMethods))
}

// Expand returns one validated Config per grid point, in a fixed order
// (lookback → skip → holding → method). StrategyID gets a variant suffix.
func (g Grid) Expand(base *Config) ([]*Config, error) {
	lookbacks := g.LookbackMonths
	if len(lookbacks) == 0 {
		lookbacks = []int{base.Signals.LookbackMonths}
	}
	skips := g.SkipMonths
	if len(skips) == 0 {
		skips = []int{base.Signals.SkipMonths}
	}
	holdings := g.HoldingMonths
	if len(holdings) == 0 {
		holdings = []int{base.Portfolio.HoldingMonths}
	}
	methods := g.SelectionMethods
	if len(methods) == 0 {
		methods = []string{base.Selection.Method}
	}

	configs := make([]*Config, 0, g.Size())
	for _, lookback := range lookbacks {
		for _, skip := range skips {
			for _, holding := range holdings {
				for _, method := range methods {
					cfg := base.Clone()
					cfg.Signals.LookbackMonths = lookback
					cfg.Signals.SkipMonths = skip
					cfg.Portfolio.HoldingMonths = holding
					cfg.Selection.Method = method
					cfg.Meta.StrategyID = fmt.Sprintf("%s_L%dS%dK%d_%s", base.Meta.StrategyID, lookback, skip, holding, method)

					if err := Validate(cfg); err != nil {
						return nil, fmt.Errorf("grid point %s: %w", cfg.Meta.StrategyID, err)
					}
					configs = append(configs, cfg)
				}
			}
		}
	}
	return configs, nil
}

func axisLen(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
