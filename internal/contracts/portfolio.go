package contracts

import (
	"sort"
	"time"
)

// SubPortfolio is the equal-weight portfolio formed on one rebalance date
// ⭐ SSOT: S5 → Aggregator 코호트 전달
// 롱은 양수, 숏은 음수 비중. 빈 쪽은 항목 자체가 없음
type SubPortfolio struct {
	FormationDate time.Time          `json:"formation_date"`
	Weights       map[string]float64 `json:"weights"`
}

// NewSubPortfolio creates an empty sub-portfolio
func NewSubPortfolio(date time.Time) SubPortfolio {
	return SubPortfolio{
		FormationDate: date,
		Weights:       make(map[string]float64),
	}
}

// Weight returns the signed weight for symbol (zero if absent)
func (p SubPortfolio) Weight(symbol string) float64 {
	return p.Weights[symbol]
}

// Symbols returns held symbols, sorted
func (p SubPortfolio) Symbols() []string {
	return sortedKeys(p.Weights)
}

// LongExposure returns the sum of positive weights
func (p SubPortfolio) LongExposure() float64 {
	total := 0.0
	for _, symbol := range p.Symbols() {
		if w := p.Weights[symbol]; w > 0 {
			total += w
		}
	}
	return total
}

// ShortExposure returns the sum of negative weights (a non-positive number)
func (p SubPortfolio) ShortExposure() float64 {
	total := 0.0
	for _, symbol := range p.Symbols() {
		if w := p.Weights[symbol]; w < 0 {
			total += w
		}
	}
	return total
}

// LongCount returns the number of long positions
func (p SubPortfolio) LongCount() int {
	return countSign(p.Weights, 1)
}

// ShortCount returns the number of short positions
func (p SubPortfolio) ShortCount() int {
	return countSign(p.Weights, -1)
}

// Clone returns a deep copy so callers cannot mutate the aggregator window
func (p SubPortfolio) Clone() SubPortfolio {
	out := NewSubPortfolio(p.FormationDate)
	for symbol, w := range p.Weights {
		out.Weights[symbol] = w
	}
	return out
}

// CompositeWeights is the average of the active sub-portfolios at a date
// ⭐ SSOT: Aggregator → ReturnEngine 합성 비중 전달
type CompositeWeights struct {
	Date        time.Time          `json:"date"`
	Weights     map[string]float64 `json:"weights"`
	ActiveCount int                `json:"active_count"`
}

// Weight returns the composite weight for symbol (zero if absent)
func (c CompositeWeights) Weight(symbol string) float64 {
	return c.Weights[symbol]
}

// Symbols returns held symbols, sorted
func (c CompositeWeights) Symbols() []string {
	return sortedKeys(c.Weights)
}

// LongCount returns the number of net long positions
func (c CompositeWeights) LongCount() int {
	return countSign(c.Weights, 1)
}

// ShortCount returns the number of net short positions
func (c CompositeWeights) ShortCount() int {
	return countSign(c.Weights, -1)
}

// GrossExposure returns the sum of absolute weights
func (c CompositeWeights) GrossExposure() float64 {
	total := 0.0
	for _, symbol := range c.Symbols() {
		w := c.Weights[symbol]
		if w < 0 {
			w = -w
		}
		total += w
	}
	return total
}

func countSign(weights map[string]float64, sign int) int {
	n := 0
	for _, w := range weights {
		if (sign > 0 && w > 0) || (sign < 0 && w < 0) {
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
