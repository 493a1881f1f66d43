package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "Cross-sectional momentum backtester",
	Long: `momo - 횡단면 모멘텀 롱/숏 백테스트 (overlapping portfolios)

파이프라인: S0 데이터 → S1 유니버스 → S2 시그널 → S3 랭킹
         → S4 서브포트폴리오 → S5 중첩 합성 → S6 수익률 → S7 성과

Usage:
  go run ./cmd/momo [command]

Examples:
  go run ./cmd/momo backtest run --strategy configs/sp500.yaml
  go run ./cmd/momo backtest sweep --strategy configs/sp500.yaml --holding 1,3,6,12
  go run ./cmd/momo data validate --strategy configs/sp500.yaml
  go run ./cmd/momo api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default: .env discovery)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
