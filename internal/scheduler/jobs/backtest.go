package jobs

import (
	"context"
	"fmt"

	"github.com/hvkconsulling1/momo-sub000/internal/backtest"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data/quality"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// DatasetLoader loads the panel and membership of a run (s0_data.Loader)
type DatasetLoader interface {
	Load(ctx context.Context, req s0_data.Request) (*s0_data.Dataset, error)
}

// ReportSaver persists validation reports (quality.Repository)
type ReportSaver interface {
	SaveReport(ctx context.Context, universe string, report *quality.Report) error
}

// BacktestJob reruns one strategy on freshly loaded data and stores the run
// ⭐ SSOT: 정기 백테스트 갱신은 이 Job에서만
type BacktestJob struct {
	configPath string
	schedule   string
	loader     DatasetLoader
	sink       contracts.ResultSink
	validator  *quality.Validator
	reports    ReportSaver
	snapshots  *s1_universe.SnapshotCache
	recorder   *metrics.Recorder
	logger     *logger.Logger
}

// NewBacktestJob creates a job running the strategy at configPath
func NewBacktestJob(configPath, schedule string, loader DatasetLoader, sink contracts.ResultSink, log *logger.Logger) *BacktestJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &BacktestJob{
		configPath: configPath,
		schedule:   schedule,
		loader:     loader,
		sink:       sink,
		logger:     log,
	}
}

// WithValidation validates the loaded panel before running; reports may be nil
func (j *BacktestJob) WithValidation(v *quality.Validator, reports ReportSaver) *BacktestJob {
	j.validator = v
	j.reports = reports
	return j
}

// WithSnapshotCache shares universe snapshots across runs
func (j *BacktestJob) WithSnapshotCache(cache *s1_universe.SnapshotCache) *BacktestJob {
	j.snapshots = cache
	return j
}

// WithRecorder reports run metrics
func (j *BacktestJob) WithRecorder(recorder *metrics.Recorder) *BacktestJob {
	j.recorder = recorder
	return j
}

// Name returns the job name
func (j *BacktestJob) Name() string {
	return "backtest_refresh"
}

// Schedule returns the cron schedule (weekdays 18:30 UTC by default)
func (j *BacktestJob) Schedule() string {
	if j.schedule == "" {
		return "0 30 18 * * 1-5"
	}
	return j.schedule
}

// Run executes load → validate → backtest → persist
func (j *BacktestJob) Run(ctx context.Context) error {
	j.logger.WithField("config", j.configPath).Info("Starting scheduled backtest")

	// 1. 전략 설정 (매 실행마다 다시 읽음)
	cfg, _, err := strategyconfig.Load(j.configPath)
	if err != nil {
		return fmt.Errorf("load strategy config: %w", err)
	}

	// 2. 데이터 갱신 (캐시 우회)
	from, to := backtest.DataWindow(cfg)
	ds, err := j.loader.Load(ctx, s0_data.Request{
		Universe:     cfg.Universe.Index,
		Symbols:      cfg.Universe.Symbols,
		Start:        from,
		End:          to,
		ForceRefresh: true,
	})
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	// 3. 품질 검증 (실패해도 진행, 경고만)
	if j.validator != nil {
		report := j.validator.Validate(ds.Panel)
		if !report.IsValid {
			j.logger.WithField("summary", report.Summary).Warn("Data quality issues found, continuing with backtest")
		}
		if j.reports != nil {
			if err := j.reports.SaveReport(ctx, cfg.Universe.Index, report); err != nil {
				return fmt.Errorf("save validation report: %w", err)
			}
		}
	}

	// 4. 백테스트
	index := s1_universe.NewIndex(ds.Panel, ds.Membership, j.logger)
	engine, err := backtest.NewEngine(cfg, index, j.logger)
	if err != nil {
		return err
	}
	if j.snapshots != nil {
		engine.WithSnapshotCache(j.snapshots)
	}
	if j.recorder != nil {
		engine.WithRecorder(j.recorder)
	}

	result, err := engine.Run(ctx, "")
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	// 5. 저장
	if err := j.sink.SaveRun(ctx, &result.RunRecord); err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"strategy_id": result.StrategyID,
		"periods":     len(result.Returns),
		"warnings":    len(result.Warnings),
	}).Info("Scheduled backtest completed")

	return nil
}
