package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "유니버스 조회 (S1)",
	Long: `특정 날짜 기준 투자 가능 종목(편입 + 최소 이력)을 조회합니다.

Example:
  go run ./cmd/momo universe show --strategy configs/sp500.yaml --date 2015-06-30`,
}

var (
	universeShowCmd = &cobra.Command{
		Use:   "show",
		Short: "시점 기준 유니버스 출력",
		RunE:  runUniverseShow,
	}

	universeDate     string
	universeExcluded bool
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeShowCmd)

	universeShowCmd.Flags().StringVar(&strategyPath, "strategy", "", "전략 YAML 경로 (필수)")
	universeShowCmd.Flags().StringVar(&universeDate, "date", "", "기준일 YYYY-MM-DD (기본: 백테스트 종료일)")
	universeShowCmd.Flags().StringVar(&pricesPath, "prices", "", "가격 parquet 파일")
	universeShowCmd.Flags().StringVar(&membershipPath, "membership", "", "편입 이력 parquet 파일")
	universeShowCmd.Flags().BoolVar(&universeExcluded, "excluded", false, "제외 종목과 사유도 출력")
	universeShowCmd.MarkFlagRequired("strategy")
}

func runUniverseShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, index, err := loadIndex(ctx, a)
	if err != nil {
		return err
	}

	date := cfg.Backtest.EndDate
	if universeDate != "" {
		date, err = time.Parse("2006-01-02", universeDate)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
	}

	builder := s1_universe.NewBuilder(index, a.log)
	if cache := a.snapshotCache(); cache != nil {
		builder.WithCache(cache)
	}
	snap, err := builder.Build(ctx, cfg.Universe.Index, date, cfg.Universe.MinHistoryMonths, cfg.Universe.Symbols)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(heavyRule)
	fmt.Printf("  Universe %s\n", snap.Index)
	fmt.Println(lightRule)
	fmt.Printf("  Date      : %s (as of %s)\n", formatDate(snap.Date), formatDate(snap.AsOf))
	fmt.Printf("  Eligible  : %d\n", snap.Count())
	fmt.Printf("  Excluded  : %d\n", len(snap.Excluded))
	fmt.Println(lightRule)
	fmt.Println(wrap(snap.Symbols, 10))

	if universeExcluded && len(snap.Excluded) > 0 {
		fmt.Println(lightRule)
		symbols := make([]string, 0, len(snap.Excluded))
		for s := range snap.Excluded {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Printf("  %-10s %s\n", s, snap.Excluded[s])
		}
	}
	return nil
}

// wrap joins symbols, perLine per row
func wrap(symbols []string, perLine int) string {
	var b strings.Builder
	for i, s := range symbols {
		if i%perLine == 0 {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("  ")
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return b.String()
}
