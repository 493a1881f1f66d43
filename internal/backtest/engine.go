package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hvkconsulling1/momo-sub000/internal/audit"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/portfolio"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/s2_signals"
	"github.com/hvkconsulling1/momo-sub000/internal/selection"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// Engine runs one backtest configuration over a shared universe index
// ⭐ SSOT: 백테스트 실행은 여기서만
// Engine 자체는 읽기 전용; run 상태(aggregator, memo, 누적 가치)는 Run 안에서 생성
type Engine struct {
	cfg       *strategyconfig.Config
	index     *s1_universe.Index
	snapshots *s1_universe.SnapshotCache
	recorder  *metrics.Recorder
	logger    *logger.Logger
}

// Result is a finished run
type Result struct {
	contracts.RunRecord
	RebalanceDates []time.Time   `json:"rebalance_dates"`
	Duration       time.Duration `json:"duration"`
}

// NewEngine validates cfg and binds it to the shared index
func NewEngine(cfg *strategyconfig.Config, index *s1_universe.Index, log *logger.Logger) (*Engine, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if index == nil {
		return nil, contracts.DataErrorf("no universe index")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{cfg: cfg, index: index, logger: log}, nil
}

// WithSnapshotCache shares universe snapshots through Redis
func (e *Engine) WithSnapshotCache(cache *s1_universe.SnapshotCache) *Engine {
	e.snapshots = cache
	return e
}

// WithRecorder reports run metrics to Prometheus
func (e *Engine) WithRecorder(recorder *metrics.Recorder) *Engine {
	e.recorder = recorder
	return e
}

// pipeline holds the per-run components
type pipeline struct {
	universe    *s1_universe.Builder
	signals     *s2_signals.MomentumCalculator
	selector    *selection.Ranker
	constructor *portfolio.Constructor
	aggregator  *portfolio.Aggregator
	returns     *ReturnEngine
}

func (e *Engine) newPipeline(log *logger.Logger) (*pipeline, error) {
	cfg := e.cfg

	signals, err := s2_signals.NewMomentumCalculator(cfg.Signals.LookbackMonths, cfg.Signals.SkipMonths, log)
	if err != nil {
		return nil, err
	}
	selector, err := selection.NewRanker(cfg.Selection.LongPct(), cfg.Selection.ShortPct(), cfg.Selection.MinSideCount, log)
	if err != nil {
		return nil, err
	}
	constructor, err := portfolio.NewConstructor(portfolio.Constraints{
		LongExposure:  cfg.Portfolio.LongExposure,
		ShortExposure: cfg.Portfolio.ShortExposure,
		Tolerance:     portfolio.DefaultTolerance,
	}, log)
	if err != nil {
		return nil, err
	}
	aggregator, err := portfolio.NewAggregator(cfg.Portfolio.HoldingPeriods(), log)
	if err != nil {
		return nil, err
	}

	universe := s1_universe.NewBuilder(e.index, log)
	if e.snapshots != nil {
		universe.WithCache(e.snapshots)
	}

	return &pipeline{
		universe:    universe,
		signals:     signals,
		selector:    selector,
		constructor: constructor,
		aggregator:  aggregator,
		returns:     NewReturnEngine(e.index.Panel(), log),
	}, nil
}

// Run processes rebalance dates in strict order. runID may be empty.
func (e *Engine) Run(ctx context.Context, runID string) (*Result, error) {
	started := time.Now()
	cfg := e.cfg
	if runID == "" {
		runID = uuid.NewString()
	}
	log := e.logger.WithRun(runID, cfg.Meta.StrategyID)

	result, err := e.run(ctx, runID, log)
	if err != nil {
		e.recordRun("error")
		log.WithError(err).Error("Backtest failed")
		return nil, err
	}
	result.Duration = time.Since(started)

	e.recordRun("ok")
	if e.recorder != nil {
		e.recorder.AddPeriods(len(result.Returns))
		e.recorder.SetSharpe(cfg.Meta.StrategyID, result.Metrics.Sharpe)
		for _, w := range result.Warnings {
			e.recorder.RecordWarning(string(w.Code))
		}
	}

	log.WithFields(map[string]interface{}{
		"periods":      result.Metrics.Periods,
		"total_return": fmt.Sprintf("%.2f%%", result.Metrics.TotalReturn*100),
		"sharpe":       fmt.Sprintf("%.2f", result.Metrics.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.Metrics.MaxDrawdown*100),
		"warnings":     len(result.Warnings),
		"duration":     result.Duration.Seconds(),
	}).Info("Backtest completed")

	return result, nil
}

func (e *Engine) run(ctx context.Context, runID string, log *logger.Logger) (*Result, error) {
	cfg := e.cfg
	panel := e.index.Panel()

	// === 입력 경계 검증 ===
	dates := RebalanceDates(panel, cfg.Backtest.StartDate, cfg.Backtest.EndDate, cfg.Portfolio.RebalanceFrequency)
	if len(dates) == 0 {
		return nil, contracts.DataErrorf("price panel has no trading days in [%s, %s]",
			cfg.Backtest.StartDate.Format(contracts.DateLayout), cfg.Backtest.EndDate.Format(contracts.DateLayout))
	}
	if len(dates) < 2 {
		return nil, contracts.DataErrorf("need at least 2 rebalance dates in [%s, %s], got %d",
			cfg.Backtest.StartDate.Format(contracts.DateLayout), cfg.Backtest.EndDate.Format(contracts.DateLayout), len(dates))
	}
	if !e.index.HasIndex(cfg.Universe.Index) {
		return nil, contracts.DataErrorf("unrecognized index %q (membership has %v)", cfg.Universe.Index, e.index.Indexes())
	}

	for _, w := range strategyconfig.Warn(cfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}
	yamlData, err := strategyconfig.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	p, err := e.newPipeline(log)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"index":      cfg.Universe.Index,
		"start_date": dates[0].Format(contracts.DateLayout),
		"end_date":   dates[len(dates)-1].Format(contracts.DateLayout),
		"rebalances": len(dates),
		"k":          cfg.Portfolio.HoldingPeriods(),
	}).Info("Starting backtest")

	timer := newStageTimer()
	records := make([]contracts.ReturnRecord, 0, len(dates)-1)
	warnings := make([]contracts.Warning, 0)

	// === 리밸런싱일 순차 처리 (순서 변경 금지) ===
	for i := 0; i < len(dates)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, next := dates[i], dates[i+1]

		record, periodWarnings, err := e.step(ctx, p, timer, t, next)
		if err != nil {
			return nil, fmt.Errorf("rebalance %s: %w", t.Format(contracts.DateLayout), err)
		}
		records = append(records, record)
		warnings = append(warnings, periodWarnings...)
	}

	timer.start(contracts.StageAudit)
	calc := audit.NewCalculator(cfg.Portfolio.PeriodsPerYear(), cfg.Backtest.RiskFreeRate, log)
	perf := calc.Calculate(records, len(warnings))
	timer.stop()

	if e.recorder != nil {
		for stage, d := range timer.totals {
			e.recorder.ObserveStage(stage.ShortName(), d.Seconds())
		}
	}

	return &Result{
		RunRecord: contracts.RunRecord{
			RunID:      runID,
			StrategyID: cfg.Meta.StrategyID,
			ConfigHash: hash,
			ConfigYAML: string(yamlData),
			CreatedAt:  time.Now().UTC(),
			Returns:    records,
			Metrics:    perf,
			Warnings:   warnings,
		},
		RebalanceDates: dates,
	}, nil
}

// step runs S1..S6 for one rebalance date t, booking the period [t, next)
func (e *Engine) step(ctx context.Context, p *pipeline, timer *stageTimer, t, next time.Time) (contracts.ReturnRecord, []contracts.Warning, error) {
	cfg := e.cfg
	var warnings []contracts.Warning

	// S1: 시점 기준 유니버스
	timer.start(contracts.StageUniverse)
	snap, err := p.universe.Build(ctx, cfg.Universe.Index, t, cfg.Universe.MinHistoryMonths, cfg.Universe.Symbols)
	timer.stop()
	if err != nil {
		return contracts.ReturnRecord{}, nil, err
	}

	// S2: 모멘텀 (전부 undefined 면 퇴화 기간으로 기록)
	timer.start(contracts.StageSignals)
	signals, err := p.signals.Calculate(ctx, e.index.Panel(), t, snap.Symbols)
	timer.stop()
	degenerate := false
	if err != nil {
		if !errors.Is(err, contracts.ErrSignal) {
			return contracts.ReturnRecord{}, nil, err
		}
		degenerate = true
		warnings = append(warnings, contracts.Warning{Date: t, Code: contracts.WarnDegenerateSignal, Message: err.Error()})
	}

	// S3: 순위/선정
	timer.start(contracts.StageSelection)
	sel, err := p.selector.Select(ctx, signals)
	timer.stop()
	if err != nil {
		return contracts.ReturnRecord{}, nil, err
	}
	for _, side := range sel.Emptied {
		warnings = append(warnings, contracts.Warning{
			Date:    t,
			Code:    contracts.WarnEmptySide,
			Message: fmt.Sprintf("%s side below min_side_count=%d, treated as empty", side, cfg.Selection.MinSideCount),
		})
	}

	// S4: 동일가중 서브 포트폴리오
	timer.start(contracts.StagePortfolio)
	sub, err := p.constructor.Construct(ctx, sel)
	timer.stop()
	if err != nil {
		return contracts.ReturnRecord{}, nil, err
	}

	// S5: K 코호트 합성
	timer.start(contracts.StageAggregate)
	composite, err := p.aggregator.Advance(t, sub)
	timer.stop()
	if err != nil {
		return contracts.ReturnRecord{}, nil, err
	}

	// S6: 기간 수익률 (퇴화 기간은 창만 전진하고 무포지션으로 기록)
	booked := composite
	if degenerate {
		booked = contracts.CompositeWeights{Date: composite.Date, Weights: map[string]float64{}, ActiveCount: composite.ActiveCount}
	}
	timer.start(contracts.StageReturns)
	record, missing := p.returns.Step(booked, next)
	timer.stop()
	record.Degenerate = degenerate
	warnings = append(warnings, missing...)

	return record, warnings, nil
}

func (e *Engine) recordRun(status string) {
	if e.recorder != nil {
		e.recorder.RecordRun(status)
	}
}

// stageTimer accumulates wall time per stage over a run
type stageTimer struct {
	totals  map[contracts.Stage]time.Duration
	current contracts.Stage
	since   time.Time
}

func newStageTimer() *stageTimer {
	return &stageTimer{totals: make(map[contracts.Stage]time.Duration)}
}

func (s *stageTimer) start(stage contracts.Stage) {
	s.current = stage
	s.since = time.Now()
}

func (s *stageTimer) stop() {
	s.totals[s.current] += time.Since(s.since)
}
