package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 결과 레코드에서 이 상수를 사용해야 함
//
// 파이프라인 흐름 (리밸런싱일 t 마다):
//   S0 → S1 → S2 → S3 → S4 → S5 → S6 → S7
//   Data  Universe  Signals  Selection  Portfolio  Aggregate  Returns  Audit

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 가격 패널 로드 및 품질 검증
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 시점 기준 지수 편입 종목
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageSignals S2: 모멘텀 점수 (lookback/skip)
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageSelection S3: 횡단면 퍼센타일 순위, 롱/숏 선정
	// 위치: internal/selection/
	StageSelection Stage = "S3_SELECTION"

	// StagePortfolio S4: 동일가중 서브 포트폴리오
	// 위치: internal/portfolio/constructor.go
	StagePortfolio Stage = "S4_PORTFOLIO"

	// StageAggregate S5: K개 코호트 중첩 평균
	// 위치: internal/portfolio/aggregator.go
	StageAggregate Stage = "S5_AGGREGATE"

	// StageReturns S6: 기간 수익률, 누적 가치, 회전율
	// 위치: internal/backtest/
	StageReturns Stage = "S6_RETURNS"

	// StageAudit S7: 성과 지표 및 결과 저장
	// 위치: internal/audit/
	StageAudit Stage = "S7_AUDIT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageSignals:
		return "S2"
	case StageSelection:
		return "S3"
	case StagePortfolio:
		return "S4"
	case StageAggregate:
		return "S5"
	case StageReturns:
		return "S6"
	case StageAudit:
		return "S7"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageUniverse,
		StageSignals,
		StageSelection,
		StagePortfolio,
		StageAggregate,
		StageReturns,
		StageAudit,
	}
}
