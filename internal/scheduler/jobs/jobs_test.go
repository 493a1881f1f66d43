package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/audit"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data/quality"
)

const strategyYAML = `
meta:
  strategy_id: nightly
universe:
  index: TEST
  min_history_months: 12
signals:
  lookback_months: 12
  skip_months: 1
portfolio:
  holding_months: 1
backtest:
  start_date: 2020-01-01
  end_date: 2020-02-29
`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// writeFixture writes weekday bars Jan 2019 .. Feb 2020 and membership files
func writeFixture(t *testing.T, dir string) (string, string) {
	t.Helper()
	levels := map[string][]float64{
		"AAA": {100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 130, 90, 99},
		"BBB": {50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 55, 50, 51},
		"CCC": {80, 79, 78, 77, 76, 75, 74, 73, 72, 71, 70, 60, 60, 63},
	}

	var bars []contracts.PriceBar
	var membership []contracts.MembershipRecord
	for symbol, series := range levels {
		membership = append(membership, contracts.MembershipRecord{Date: day(2018, 12, 1), Symbol: symbol, IndexName: "TEST", IsMember: true})
		for i, level := range series {
			first := day(2019, time.January+time.Month(i), 1)
			for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
				if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
					continue
				}
				bars = append(bars, contracts.PriceBar{Date: d, Symbol: symbol, Open: level, High: level, Low: level, Close: level, UnadjustedClose: level, Volume: 1000})
			}
		}
	}

	prices := filepath.Join(dir, "prices.parquet")
	members := filepath.Join(dir, "membership.parquet")
	require.NoError(t, s0_data.WritePriceFile(prices, bars))
	require.NoError(t, s0_data.WriteMembershipFile(members, membership))
	return prices, members
}

type memoryReports struct {
	universe string
	report   *quality.Report
}

func (m *memoryReports) SaveReport(ctx context.Context, universe string, report *quality.Report) error {
	m.universe = universe
	m.report = report
	return nil
}

func TestBacktestJob_Run(t *testing.T) {
	dir := t.TempDir()
	prices, members := writeFixture(t, dir)
	configPath := filepath.Join(dir, "strategy.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(strategyYAML), 0o644))

	loader := s0_data.NewLoader(s0_data.NewFileSource(prices, members), s0_data.NewFileSource(prices, members), s0_data.NewParquetCache(dir), nil)
	store := audit.NewFileStore(filepath.Join(dir, "results"), nil)
	reports := &memoryReports{}

	job := NewBacktestJob(configPath, "", loader, store, nil).
		WithValidation(quality.NewValidator(quality.DefaultConfig(), nil), reports)

	assert.Equal(t, "backtest_refresh", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "nightly", runs[0].StrategyID)

	returns, err := store.GetReturns(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	// long AAA (+10%), short CCC (+5%)
	assert.InDelta(t, 0.05, returns[0].PortfolioReturn, 1e-12)

	assert.Equal(t, "TEST", reports.universe)
	require.NotNil(t, reports.report)
	assert.Equal(t, 3, reports.report.TotalSymbols)
}

func TestBacktestJob_BadConfig(t *testing.T) {
	job := NewBacktestJob(filepath.Join(t.TempDir(), "missing.yaml"), "@daily", nil, nil, nil)
	assert.Equal(t, "@daily", job.Schedule())
	assert.Error(t, job.Run(context.Background()))
}

type fakePruner struct {
	keep    int
	removed []string
	err     error
}

func (f *fakePruner) Prune(ctx context.Context, keep int) ([]string, error) {
	f.keep = keep
	return f.removed, f.err
}

func TestRetentionJob(t *testing.T) {
	pruner := &fakePruner{removed: []string{"old"}}
	job := NewRetentionJob(pruner, 30, nil)

	assert.Equal(t, "results_retention", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 30, pruner.keep)

	pruner.err = errors.New("permission denied")
	assert.Error(t, job.Run(context.Background()))
}
