package commands

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/backtest"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	heavyRule = "═══════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────"
)

// PrintRunHeader prints the strategy parameters of a run
func PrintRunHeader(cfg *strategyconfig.Config, runID string) {
	fmt.Println()
	fmt.Println(heavyRule)
	fmt.Printf("  %s\n", cfg.Meta.StrategyID)
	fmt.Println(lightRule)
	fmt.Printf("  Run ID    : %s\n", runID)
	fmt.Printf("  Universe  : %s\n", cfg.Universe.Index)
	fmt.Printf("  Period    : %s ~ %s\n", formatDate(cfg.Backtest.StartDate), formatDate(cfg.Backtest.EndDate))
	fmt.Printf("  Signal    : L%d S%d\n", cfg.Signals.LookbackMonths, cfg.Signals.SkipMonths)
	fmt.Printf("  Holding   : %d months (%s)\n", cfg.Portfolio.HoldingMonths, cfg.Portfolio.RebalanceFrequency)
	fmt.Printf("  Selection : %s (long ≥ %.2f, short ≤ %.2f)\n", cfg.Selection.Method, cfg.Selection.LongPct(), cfg.Selection.ShortPct())
	fmt.Println(lightRule)
}

// PrintMetrics prints performance metrics
func PrintMetrics(m contracts.PerformanceMetrics) {
	fmt.Printf("  Periods       : %d (%s ~ %s)\n", m.Periods, formatDate(m.StartDate), formatDate(m.EndDate))
	fmt.Printf("  Total Return  : %s\n", formatPct(m.TotalReturn))
	fmt.Printf("  CAGR          : %s\n", formatPct(m.CAGR))
	fmt.Printf("  Volatility    : %s\n", formatPct(m.Volatility))
	fmt.Printf("  Sharpe        : %s\n", formatRatio(m.Sharpe))
	fmt.Printf("  Sortino       : %s\n", formatRatio(m.Sortino))
	fmt.Printf("  Max Drawdown  : %s\n", formatPct(m.MaxDrawdown))
	fmt.Printf("  Avg Turnover  : %s\n", formatRatio(m.AvgTurnover))
	fmt.Printf("  Hit Rate      : %s\n", formatPct(m.HitRate))
	fmt.Printf("  Final Value   : %s\n", formatRatio(m.FinalValue))
	fmt.Printf("  Zero Periods  : %d\n", m.ZeroPeriods)
}

// PrintWarningSummary prints warning counts per code
func PrintWarningSummary(warnings []contracts.Warning) {
	if len(warnings) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[string(w.Code)]++
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Println(lightRule)
	fmt.Printf("  ⚠️  Warnings: %d\n", len(warnings))
	for _, code := range codes {
		fmt.Printf("     %-24s %d\n", code, counts[code])
	}
}

// PrintSweepTable prints one row per variant and returns the failure count
func PrintSweepTable(results []backtest.SweepResult) int {
	failed := 0
	fmt.Printf("%-36s %10s %8s %8s %10s\n", "STRATEGY", "CAGR", "SHARPE", "MDD", "TURNOVER")
	fmt.Println(lightRule)
	for _, r := range results {
		name := r.Config.Meta.StrategyID
		if r.Err != nil {
			failed++
			fmt.Printf("%-36s ❌ %v\n", name, r.Err)
			continue
		}
		m := r.Result.Metrics
		fmt.Printf("%-36s %10s %8s %8s %10s\n", name,
			formatPct(m.CAGR), formatRatio(m.Sharpe), formatPct(m.MaxDrawdown), formatRatio(m.AvgTurnover))
	}
	return failed
}

// PrintRunSummaries prints stored runs, newest first
func PrintRunSummaries(runs []contracts.RunSummary) {
	fmt.Printf("%-38s %-32s %-17s %8s %8s\n", "RUN ID", "STRATEGY", "CREATED", "CAGR", "SHARPE")
	fmt.Println(lightRule)
	for _, r := range runs {
		fmt.Printf("%-38s %-32s %-17s %8s %8s\n", r.RunID, r.StrategyID,
			r.CreatedAt.Format("2006-01-02 15:04"), formatPct(r.Metrics.CAGR), formatRatio(r.Metrics.Sharpe))
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatPct prints NaN as n/a
func formatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
