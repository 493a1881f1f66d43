package contracts

import (
	"context"
	"time"
)

// PriceSource produces bars for a universe and date range (S0 boundary)
// ⭐ SSOT: S0 가격 데이터 공급 인터페이스
type PriceSource interface {
	LoadBars(ctx context.Context, symbols []string, start, end time.Time) ([]PriceBar, error)
}

// MembershipSource produces point-in-time index membership (S0 boundary)
// ⭐ SSOT: S0 지수 편입 이력 공급 인터페이스
type MembershipSource interface {
	LoadMembership(ctx context.Context, index string, start, end time.Time) ([]MembershipRecord, error)
}

// UniverseBuilder returns the eligible symbols for one rebalance date (S1)
type UniverseBuilder interface {
	Build(ctx context.Context, index string, date time.Time, minHistoryMonths int, allowlist []string) (*UniverseSnapshot, error)
}

// SignalCalculator scores a universe at one date (S2)
type SignalCalculator interface {
	Calculate(ctx context.Context, panel *PricePanel, date time.Time, symbols []string) (*SignalSet, error)
}

// Selector turns scores into long/short candidates (S3)
type Selector interface {
	Select(ctx context.Context, signals *SignalSet) (*Selection, error)
}

// PortfolioConstructor forms a sub-portfolio from a selection (S4)
type PortfolioConstructor interface {
	Construct(ctx context.Context, selection *Selection) (SubPortfolio, error)
}

// ResultSink consumes a finished run (S7 boundary)
type ResultSink interface {
	SaveRun(ctx context.Context, run *RunRecord) error
}
