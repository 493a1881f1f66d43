package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hvkconsulling1/momo-sub000/internal/s0_data"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data/quality"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "데이터 관리 (S0)",
	Long: `가격/편입 이력 데이터를 가져오고 검증합니다.

Subcommands:
  fetch     - 원격 export 를 {DATA_DIR}/import/{index} 로 다운로드
  import    - parquet 파일을 Postgres 로 적재
  validate  - 전략 기간 데이터 품질 검사

Example:
  go run ./cmd/momo data fetch --index SP500
  go run ./cmd/momo data import --index SP500 --prices prices.parquet --membership membership.parquet
  go run ./cmd/momo data validate --strategy configs/sp500.yaml`,
}

var (
	dataFetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "원격 export 다운로드",
		RunE:  runDataFetch,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "parquet → Postgres 적재",
		Long: `가격/편입 이력 parquet 파일을 momo.daily_prices, momo.index_membership 에 upsert 합니다.
DATABASE_URL 이 필요합니다. --prices 를 생략하면 data fetch 결과를 사용합니다.`,
		RunE: runDataImport,
	}

	dataValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "데이터 품질 검사",
		Long: `전략 데이터 구간의 가격 패널을 검사합니다.
- 결측 거래일 / 날짜 갭
- 수정주가 이상치
- 상장폐지(정보성)

DATABASE_URL 이 설정되어 있으면 리포트를 momo.validation_reports 에 저장합니다.`,
		RunE: runDataValidate,
	}

	dataIndex  string
	dataStrict bool
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)
	dataCmd.AddCommand(dataImportCmd)
	dataCmd.AddCommand(dataValidateCmd)

	dataFetchCmd.Flags().StringVar(&dataIndex, "index", "", "유니버스 인덱스 (필수)")
	dataFetchCmd.MarkFlagRequired("index")

	dataImportCmd.Flags().StringVar(&dataIndex, "index", "", "유니버스 인덱스 (필수)")
	dataImportCmd.Flags().StringVar(&pricesPath, "prices", "", "가격 parquet 파일")
	dataImportCmd.Flags().StringVar(&membershipPath, "membership", "", "편입 이력 parquet 파일")
	dataImportCmd.MarkFlagRequired("index")

	dataValidateCmd.Flags().StringVar(&strategyPath, "strategy", "", "전략 YAML 경로 (필수)")
	dataValidateCmd.Flags().StringVar(&pricesPath, "prices", "", "가격 parquet 파일")
	dataValidateCmd.Flags().StringVar(&membershipPath, "membership", "", "편입 이력 parquet 파일")
	dataValidateCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "parquet 캐시 무시")
	dataValidateCmd.Flags().BoolVar(&dataStrict, "strict", false, "품질 이슈가 있으면 실패")
	dataValidateCmd.MarkFlagRequired("strategy")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("=== Fetch %s ===\n", dataIndex)
	start := time.Now()

	src, err := a.remote().Sync(ctx, dataIndex)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Prices     : %s\n", src.PricesPath)
	fmt.Printf("✅ Membership : %s\n", src.MembershipPath)
	fmt.Printf("\nCompleted in %.2fs\n", time.Since(start).Seconds())
	return nil
}

func runDataImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return errors.New("data import requires DATABASE_URL")
	}

	prices, membership := pricesPath, membershipPath
	if prices == "" {
		dir := a.remote().LocalDir(dataIndex)
		prices = filepath.Join(dir, "prices.parquet")
		membership = filepath.Join(dir, "membership.parquet")
	}
	src := s0_data.NewFileSource(prices, membership)

	fmt.Printf("=== Import %s ===\n", dataIndex)

	// 전체 기간
	from := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)

	records, err := src.LoadMembership(ctx, dataIndex, from, to)
	if err != nil {
		return err
	}
	if err := s0_data.NewMembershipRepository(a.db.Pool).SaveMembership(ctx, records); err != nil {
		return fmt.Errorf("save membership: %w", err)
	}
	fmt.Printf("✅ Membership events: %d\n", len(records))

	bars, err := src.LoadBars(ctx, nil, from, to)
	if err != nil {
		return err
	}
	repo := s0_data.NewPriceRepository(a.db.Pool)
	if err := repo.SaveBars(ctx, bars); err != nil {
		return fmt.Errorf("save bars: %w", err)
	}
	total, err := repo.CountBars(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Price bars: %d imported (%d in database)\n", len(bars), total)
	return nil
}

func runDataValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, _, err := strategyconfig.Load(strategyPath)
	if err != nil {
		return err
	}

	ds, err := loadDataset(ctx, a, cfg)
	if err != nil {
		return err
	}

	report := quality.NewValidator(quality.DefaultConfig(), a.log).Validate(ds.Panel)
	fmt.Println(report.String())

	if a.db != nil {
		if err := quality.NewRepository(a.db.Pool).SaveReport(ctx, cfg.Universe.Index, report); err != nil {
			return fmt.Errorf("save validation report: %w", err)
		}
		fmt.Println("📝 Report saved to momo.validation_reports")
	}

	if dataStrict && !report.IsValid {
		return fmt.Errorf("data quality check failed: %s", report.Summary)
	}
	return nil
}
