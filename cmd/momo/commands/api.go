package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hvkconsulling1/momo-sub000/internal/api"
	"github.com/hvkconsulling1/momo-sub000/internal/api/handlers"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "결과 조회 API 서버",
	Long: `저장된 백테스트 결과를 HTTP 로 제공합니다.

Endpoints:
  GET /health
  GET /metrics                 (METRICS_ENABLED=true)
  GET /api/runs?limit=50
  GET /api/runs/{id}
  GET /api/runs/{id}/returns

DATABASE_URL 이 있으면 Postgres, 없으면 RESULTS_DIR 에서 읽습니다.
Ctrl+C 로 종료합니다.

Example:
  go run ./cmd/momo api
  PORT=9000 go run ./cmd/momo api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var recorder *metrics.Recorder
	if a.cfg.MetricsEnabled {
		recorder = a.recorder
	}

	router := api.NewRouter(handlers.NewRunHandler(a.repository(), a.log), recorder, a.log)
	return api.New(a.cfg, a.log, router).Run(ctx)
}
