package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	backtestListCmd = &cobra.Command{
		Use:   "list",
		Short: "저장된 실행 목록",
		Long: `저장된 백테스트 실행을 최신순으로 출력합니다.
DATABASE_URL 이 있으면 Postgres, 없으면 RESULTS_DIR 에서 읽습니다.`,
		RunE: runBacktestList,
	}

	backtestShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "실행 지표 출력",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktestShow,
	}

	listLimit int
)

func init() {
	backtestCmd.AddCommand(backtestListCmd)
	backtestCmd.AddCommand(backtestShowCmd)

	backtestListCmd.Flags().IntVar(&listLimit, "limit", 20, "최대 개수")
	backtestShowCmd.Flags().BoolVar(&backtestJSON, "json", false, "지표를 JSON 으로 출력")
}

func runBacktestList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.repository().ListRuns(ctx, listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored")
		return nil
	}
	PrintRunSummaries(runs)
	return nil
}

func runBacktestShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.repository().GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Println(heavyRule)
	fmt.Printf("  %s\n", run.StrategyID)
	fmt.Println(lightRule)
	fmt.Printf("  Run ID    : %s\n", run.RunID)
	fmt.Printf("  Created   : %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Config    : %s\n", run.ConfigHash)
	fmt.Println(lightRule)
	PrintMetrics(run.Metrics)
	return nil
}
