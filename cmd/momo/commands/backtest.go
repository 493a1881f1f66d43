package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hvkconsulling1/momo-sub000/internal/backtest"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "모멘텀 백테스트",
	Long: `횡단면 모멘텀 롱/숏 전략을 중첩 포트폴리오로 백테스트합니다.

Subcommands:
  run     - 단일 전략 실행
  sweep   - 파라미터 그리드 병렬 실행

Example:
  go run ./cmd/momo backtest run --strategy configs/sp500.yaml
  go run ./cmd/momo backtest sweep --strategy configs/sp500.yaml --holding 1,3,6,12`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `전략 YAML 하나로 백테스트를 실행하고 결과를 저장합니다.

결과: {RESULTS_DIR}/{run_id}/returns.parquet, metrics.json, config.yaml, warnings.json
DATABASE_URL 이 설정되어 있으면 Postgres 에도 저장합니다.

Example:
  go run ./cmd/momo backtest run --strategy configs/sp500.yaml
  go run ./cmd/momo backtest run --strategy configs/sp500.yaml --run-id sp500_baseline --json`,
		RunE: runBacktest,
	}

	backtestSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "파라미터 스윕",
		Long: `기본 전략에서 lookback/skip/holding/method 축을 조합해 병렬 실행합니다.
빈 축은 기본 전략 값을 사용합니다. 각 실행은 끝나는 즉시 저장됩니다.

Example:
  go run ./cmd/momo backtest sweep --strategy configs/sp500.yaml --holding 1,3,6,12
  go run ./cmd/momo backtest sweep --strategy configs/sp500.yaml --lookback 6,12 --methods decile,quintile --workers 8`,
		RunE: runSweep,
	}

	// Flags
	backtestRunID string
	backtestJSON  bool

	sweepLookback []int
	sweepSkip     []int
	sweepHolding  []int
	sweepMethods  []string
	sweepWorkers  int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestSweepCmd)

	for _, c := range []*cobra.Command{backtestRunCmd, backtestSweepCmd} {
		c.Flags().StringVar(&strategyPath, "strategy", "", "전략 YAML 경로 (필수)")
		c.Flags().StringVar(&pricesPath, "prices", "", "가격 parquet 파일 (기본: DB 또는 data fetch 결과)")
		c.Flags().StringVar(&membershipPath, "membership", "", "편입 이력 parquet 파일 (--prices 와 함께)")
		c.Flags().BoolVar(&forceRefresh, "force-refresh", false, "parquet 캐시 무시")
		c.MarkFlagRequired("strategy")
	}

	backtestRunCmd.Flags().StringVar(&backtestRunID, "run-id", "", "실행 ID (기본: UUID)")
	backtestRunCmd.Flags().BoolVar(&backtestJSON, "json", false, "지표를 JSON 으로 출력")

	backtestSweepCmd.Flags().IntSliceVar(&sweepLookback, "lookback", nil, "lookback 개월 목록")
	backtestSweepCmd.Flags().IntSliceVar(&sweepSkip, "skip", nil, "skip 개월 목록")
	backtestSweepCmd.Flags().IntSliceVar(&sweepHolding, "holding", nil, "보유 개월 목록")
	backtestSweepCmd.Flags().StringSliceVar(&sweepMethods, "methods", nil, "선정 방식 목록 (decile|quintile|tertile)")
	backtestSweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "worker 수 (기본: SWEEP_WORKERS)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !backtestJSON {
		fmt.Println("=== Momentum Backtest ===")
	}

	cfg, index, err := loadIndex(ctx, a)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(cfg, index, a.log)
	if err != nil {
		return err
	}
	engine.WithRecorder(a.recorder)
	if cache := a.snapshotCache(); cache != nil {
		engine.WithSnapshotCache(cache)
	}

	result, err := engine.Run(ctx, backtestRunID)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}
	if err := a.sink().SaveRun(ctx, &result.RunRecord); err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Metrics)
	}

	PrintRunHeader(cfg, result.RunID)
	PrintMetrics(result.Metrics)
	PrintWarningSummary(result.Warnings)
	fmt.Printf("\n✅ Run %s saved to %s (%.2fs)\n", result.RunID, a.fileStore().RunDir(result.RunID), result.Duration.Seconds())
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("=== Momentum Parameter Sweep ===")

	base, index, err := loadIndex(ctx, a)
	if err != nil {
		return err
	}

	grid := strategyconfig.Grid{
		LookbackMonths:   sweepLookback,
		SkipMonths:       sweepSkip,
		HoldingMonths:    sweepHolding,
		SelectionMethods: sweepMethods,
	}
	configs, err := grid.Expand(base)
	if err != nil {
		return err
	}

	workers := sweepWorkers
	if workers <= 0 {
		workers = a.cfg.SweepWorkers
	}
	fmt.Printf("\n🧪 Variants: %d, workers: %d\n\n", len(configs), workers)

	sink := a.sink()
	sweep := backtest.NewSweep(index, workers, a.log).
		WithRecorder(a.recorder).
		WithSink(func(ctx context.Context, r *backtest.Result) error {
			return sink.SaveRun(ctx, &r.RunRecord)
		})
	if cache := a.snapshotCache(); cache != nil {
		sweep.WithSnapshotCache(cache)
	}

	start := time.Now()
	results, err := sweep.Run(ctx, configs)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	failed := PrintSweepTable(results)
	fmt.Printf("\n✅ Sweep completed in %.2fs (%d ok, %d failed)\n", time.Since(start).Seconds(), len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d variants failed", failed, len(results))
	}
	return nil
}
