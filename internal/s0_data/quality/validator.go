package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/creasty/defaults"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

const maxSummaryLen = 200

// Config holds validation thresholds
type Config struct {
	GapBusinessDays int     `yaml:"gap_business_days" default:"10"` // 이 이상 영업일 공백이면 gap
	JumpThreshold   float64 `yaml:"jump_threshold" default:"0.40"`  // 배당 없는 일간 변동 한도
	DelistingDays   int     `yaml:"delisting_days" default:"30"`    // 패널 종료일 대비 공백 일수
	CheckDelistings bool    `yaml:"check_delistings" default:"true"`
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("quality: bad default tags: %v", err))
	}
	return cfg
}

// Gap is a pair of consecutive observations too far apart
type Gap struct {
	Before time.Time `json:"before"`
	After  time.Time `json:"after"`
}

// Report summarizes panel data quality
// ⭐ SSOT: S0 품질 리포트 (delisting 은 정보성, IsValid 에 영향 없음)
type Report struct {
	TotalSymbols     int                  `json:"total_symbols"`
	Start            time.Time            `json:"start"`
	End              time.Time            `json:"end"`
	MissingData      map[string]int       `json:"missing_data"`
	DateGaps         map[string][]Gap     `json:"date_gaps"`
	AdjustmentIssues []string             `json:"adjustment_issues"`
	Delistings       map[string]time.Time `json:"delistings"`
	Summary          string               `json:"summary"`
	IsValid          bool                 `json:"is_valid"`
}

// Validator runs the panel quality checks
type Validator struct {
	cfg Config
	log *logger.Logger
}

// NewValidator creates a validator
func NewValidator(cfg Config, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Validator{cfg: cfg, log: log.WithStage(contracts.StageData.ShortName())}
}

// Validate checks missing values, date gaps, adjustment consistency and delistings
func (v *Validator) Validate(panel *contracts.PricePanel) *Report {
	symbols := panel.Symbols()
	report := &Report{
		TotalSymbols:     len(symbols),
		Start:            panel.Start(),
		End:              panel.End(),
		MissingData:      make(map[string]int),
		DateGaps:         make(map[string][]Gap),
		AdjustmentIssues: []string{},
		Delistings:       make(map[string]time.Time),
	}

	for _, symbol := range symbols {
		series := panel.Series(symbol)

		if n := v.countMissing(series); n > 0 {
			report.MissingData[symbol] = n
			v.log.WithFields(map[string]interface{}{"symbol": symbol, "nan_count": n}).Warn("missing data detected")
		}

		if gaps := v.findGaps(series); len(gaps) > 0 {
			report.DateGaps[symbol] = gaps
			v.log.WithFields(map[string]interface{}{"symbol": symbol, "gaps": len(gaps)}).Warn("date gap detected")
		}

		if issue := v.adjustmentIssue(series); issue != "" {
			report.AdjustmentIssues = append(report.AdjustmentIssues, symbol)
			v.log.WithFields(map[string]interface{}{"symbol": symbol, "issue_type": issue}).Warn("adjustment issue detected")
		}

		if v.cfg.CheckDelistings && len(series) > 0 {
			last := series[len(series)-1].Date
			if int(report.End.Sub(last).Hours()/24) > v.cfg.DelistingDays {
				report.Delistings[symbol] = last
			}
		}
	}

	report.IsValid = len(report.MissingData) == 0 && len(report.DateGaps) == 0 && len(report.AdjustmentIssues) == 0
	report.Summary = summarize(report)

	v.log.WithFields(map[string]interface{}{
		"total_symbols": report.TotalSymbols,
		"is_valid":      report.IsValid,
		"delistings":    len(report.Delistings),
	}).Info("price data validation complete")

	return report
}

// countMissing counts NaN values across OHLC
func (v *Validator) countMissing(series []contracts.PriceBar) int {
	n := 0
	for _, b := range series {
		for _, x := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(x) {
				n++
			}
		}
	}
	return n
}

func (v *Validator) findGaps(series []contracts.PriceBar) []Gap {
	var gaps []Gap
	for i := 1; i < len(series); i++ {
		before, after := series[i-1].Date, series[i].Date
		if BusinessDaysBetween(before, after) >= v.cfg.GapBusinessDays {
			gaps = append(gaps, Gap{Before: before, After: after})
		}
	}
	return gaps
}

// adjustmentIssue returns "negative_price", "large_jump_no_dividend" or ""
func (v *Validator) adjustmentIssue(series []contracts.PriceBar) string {
	for _, b := range series {
		if b.Close < 0 {
			return "negative_price"
		}
	}
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1].Close, series[i].Close
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		if math.Abs(cur/prev-1) > v.cfg.JumpThreshold && series[i].Dividend == 0 {
			return "large_jump_no_dividend"
		}
	}
	return ""
}

// BusinessDaysBetween returns the number of weekdays in [from, to] minus one
func BusinessDaysBetween(from, to time.Time) int {
	from, to = contracts.Day(from), contracts.Day(to)
	if !to.After(from) {
		return 0
	}
	inclusive := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			inclusive++
		}
	}
	if inclusive == 0 {
		return 0
	}
	return inclusive - 1
}

func summarize(r *Report) string {
	var issues []string
	if len(r.MissingData) > 0 {
		total := 0
		for _, n := range r.MissingData {
			total += n
		}
		issues = append(issues, fmt.Sprintf("%d ticker(s) with %d missing value(s)", len(r.MissingData), total))
	}
	if len(r.DateGaps) > 0 {
		total := 0
		for _, g := range r.DateGaps {
			total += len(g)
		}
		issues = append(issues, fmt.Sprintf("%d ticker(s) with %d date gap(s)", len(r.DateGaps), total))
	}
	if len(r.AdjustmentIssues) > 0 {
		issues = append(issues, fmt.Sprintf("%d ticker(s) with adjustment issue(s)", len(r.AdjustmentIssues)))
	}
	if len(r.Delistings) > 0 {
		issues = append(issues, fmt.Sprintf("%d delisted", len(r.Delistings)))
	}

	if len(issues) == 0 {
		return fmt.Sprintf("Validation complete: %d tickers, no issues detected", r.TotalSymbols)
	}
	msg := "Validation found issues: " + strings.Join(issues, "; ")
	if len(msg) > maxSummaryLen {
		msg = msg[:maxSummaryLen-3] + "..."
	}
	return msg
}

// String renders the framed text report
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("===== Validation Report =====\n")
	fmt.Fprintf(&b, "Total Tickers: %d\n", r.TotalSymbols)
	fmt.Fprintf(&b, "Date Range: %s to %s\n", r.Start.Format(contracts.DateLayout), r.End.Format(contracts.DateLayout))
	b.WriteString(countLine("Missing Data", len(r.MissingData), " with issues"))
	b.WriteString(countLine("Date Gaps", len(r.DateGaps), " with issues"))
	b.WriteString(countLine("Adjustment Issues", len(r.AdjustmentIssues), ""))
	b.WriteString(countLine("Delisting Events", len(r.Delistings), ""))
	if r.IsValid {
		b.WriteString("Status: VALID\n")
	} else {
		b.WriteString("Status: INVALID\n")
	}
	fmt.Fprintf(&b, "Summary: %s\n", r.Summary)
	b.WriteString("=============================")
	return b.String()
}

func countLine(label string, n int, suffix string) string {
	if n == 0 {
		return label + ": None\n"
	}
	return fmt.Sprintf("%s: %d ticker(s)%s\n", label, n, suffix)
}
