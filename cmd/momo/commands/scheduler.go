package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hvkconsulling1/momo-sub000/internal/s0_data/quality"
	"github.com/hvkconsulling1/momo-sub000/internal/scheduler"
	"github.com/hvkconsulling1/momo-sub000/internal/scheduler/jobs"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 백테스트 갱신과 결과 보관 작업을 스케줄합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/momo scheduler start --strategy configs/sp500.yaml
  go run ./cmd/momo scheduler list --strategy configs/sp500.yaml
  go run ./cmd/momo scheduler run backtest_refresh --strategy configs/sp500.yaml`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- backtest_refresh: 평일 18:30 UTC (데이터 갱신 → 검증 → 백테스트 → 저장)
- results_retention: 매일 03:00 UTC (최근 --keep 개 실행만 보관)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerSchedule string
	schedulerKeep     int
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	for _, c := range []*cobra.Command{schedulerStartCmd, schedulerListCmd, schedulerRunCmd} {
		c.Flags().StringVar(&strategyPath, "strategy", "", "전략 YAML 경로 (필수)")
		c.Flags().StringVar(&schedulerSchedule, "schedule", "", "backtest_refresh cron 식 (기본: 0 30 18 * * 1-5)")
		c.Flags().IntVar(&schedulerKeep, "keep", 100, "보관할 실행 수")
		c.MarkFlagRequired("strategy")
	}
}

// setupScheduler registers every job
func setupScheduler(a *app) (*scheduler.Scheduler, error) {
	// 설정 오류는 스케줄 등록 전에 드러나도록 먼저 읽음
	cfg, _, err := strategyconfig.Load(strategyPath)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log).WithRetry(2, time.Minute)

	var reports jobs.ReportSaver
	if a.db != nil {
		reports = quality.NewRepository(a.db.Pool)
	}
	refresh := jobs.NewBacktestJob(strategyPath, schedulerSchedule, a.loader(cfg.Universe.Index, "", ""), a.sink(), a.log).
		WithValidation(quality.NewValidator(quality.DefaultConfig(), a.log), reports).
		WithRecorder(a.recorder)
	if cache := a.snapshotCache(); cache != nil {
		refresh.WithSnapshotCache(cache)
	}
	if err := sched.AddJob(refresh); err != nil {
		return nil, err
	}

	if err := sched.AddJob(jobs.NewRetentionJob(a.fileStore(), schedulerKeep, a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := setupScheduler(a)
	if err != nil {
		return err
	}

	fmt.Println("=== Momo Scheduler ===")
	printJobs(sched)

	sched.Start()
	fmt.Println("\n🚀 Scheduler started. Press Ctrl+C to stop.")

	<-ctx.Done()
	fmt.Println("\n🛑 Shutting down scheduler...")
	sched.Stop()
	printHistory(sched)
	return nil
}

// printHistory prints the latest result of every job that ran
func printHistory(sched *scheduler.Scheduler) {
	for _, name := range sched.GetAllJobs() {
		history, err := sched.GetJobHistory(name)
		if err != nil || len(history.Results) == 0 {
			continue
		}
		last := history.GetLatestResults(1)[0]
		status := "✅"
		if !last.Success {
			status = "❌"
		}
		fmt.Printf("%s %-20s runs=%d failures=%d last=%s\n", status, name,
			len(history.Results), history.FailureCount(), last.StartTime.Format("2006-01-02 15:04:05"))
	}
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := setupScheduler(a)
	if err != nil {
		return err
	}
	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := setupScheduler(a)
	if err != nil {
		return err
	}

	fmt.Printf("▶️  Running %s...\n", args[0])
	result, err := sched.RunJob(ctx, args[0])
	if err != nil {
		if result.JobName != "" {
			fmt.Printf("❌ %s failed after %d attempt(s): %s\n", result.JobName, result.Attempts, result.Error)
		}
		return err
	}
	fmt.Printf("✅ %s completed in %.2fs\n", result.JobName, result.Duration.Seconds())
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Printf("\n%-20s %-20s %s\n", "JOB", "SCHEDULE", "NEXT RUN")
	fmt.Println(lightRule)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("%-20s %-20s %s\n", name, stats[name].Schedule, next)
	}
}
