package contracts

import (
	"sort"
	"time"
)

// Score is a momentum value, or undefined when history is insufficient
type Score struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Undefined returns the undefined score
func Undefined() Score {
	return Score{}
}

// DefinedScore wraps a computed value
func DefinedScore(v float64) Score {
	return Score{Value: v, Defined: true}
}

// SignalSet represents scores passed from S2 to the selector
// ⭐ SSOT: S2 → S3 시그널 전달
type SignalSet struct {
	Date   time.Time        `json:"date"`
	Scores map[string]Score `json:"scores"`
}

// NewSignalSet creates an empty signal set
func NewSignalSet(date time.Time) *SignalSet {
	return &SignalSet{
		Date:   date,
		Scores: make(map[string]Score),
	}
}

// Get returns the score for a symbol (undefined when absent)
func (s *SignalSet) Get(symbol string) Score {
	return s.Scores[symbol]
}

// Defined returns symbols with a defined score, sorted
func (s *SignalSet) Defined() []string {
	out := make([]string, 0, len(s.Scores))
	for symbol, score := range s.Scores {
		if score.Defined {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// AllUndefined reports the degenerate case where nothing can be ranked
func (s *SignalSet) AllUndefined() bool {
	for _, score := range s.Scores {
		if score.Defined {
			return false
		}
	}
	return true
}

// Count returns the number of scored symbols, defined or not
func (s *SignalSet) Count() int {
	return len(s.Scores)
}
