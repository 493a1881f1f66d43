package portfolio

import (
	"math"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// DefaultTolerance bounds the exposure check
const DefaultTolerance = 1e-9

// Constraints defines the exposure invariants every sub-portfolio must satisfy
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	LongExposure  float64 // 롱 비중 합계 목표 (예: 1.0)
	ShortExposure float64 // 숏 비중 합계 목표의 절대값 (예: 1.0)
	Tolerance     float64
}

// DefaultConstraints returns fully invested long and short books
func DefaultConstraints() Constraints {
	return Constraints{
		LongExposure:  1.0,
		ShortExposure: 1.0,
		Tolerance:     DefaultTolerance,
	}
}

// Check verifies the exposure sums of a non-empty side.
// A violation is an implementation defect and returns a PortfolioError.
func (c Constraints) Check(sub contracts.SubPortfolio) error {
	tol := c.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	for _, symbol := range sub.Symbols() {
		w := sub.Weights[symbol]
		if math.IsNaN(w) || math.IsInf(w, 0) || w == 0 {
			return contracts.PortfolioErrorf("invalid weight %v for %s on %s", w, symbol, sub.FormationDate.Format(contracts.DateLayout))
		}
	}

	if sub.LongCount() > 0 {
		if got := sub.LongExposure(); math.Abs(got-c.LongExposure) > tol {
			return contracts.PortfolioErrorf("long exposure %.12f != %.12f on %s", got, c.LongExposure, sub.FormationDate.Format(contracts.DateLayout))
		}
	}
	if sub.ShortCount() > 0 {
		if got := sub.ShortExposure(); math.Abs(got+c.ShortExposure) > tol {
			return contracts.PortfolioErrorf("short exposure %.12f != %.12f on %s", got, -c.ShortExposure, sub.FormationDate.Format(contracts.DateLayout))
		}
	}
	return nil
}
