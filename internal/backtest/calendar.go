package backtest

import (
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

// windowBufferMonths pads the data window so the first lookback anchor resolves
const windowBufferMonths = 1

// RebalanceDates returns the last panel trading day of every month (or
// calendar quarter) within [start, end], in increasing order. A period cut
// short by end keeps its last trading day on or before end.
func RebalanceDates(panel *contracts.PricePanel, start, end time.Time, frequency string) []time.Time {
	start, end = contracts.Day(start), contracts.Day(end)

	var out []time.Time
	var lastKey int
	for _, d := range panel.Dates() {
		if d.Before(start) || d.After(end) {
			continue
		}
		key := periodKey(d, frequency)
		if len(out) > 0 && key == lastKey {
			out[len(out)-1] = d // 같은 기간의 더 늦은 거래일
			continue
		}
		out = append(out, d)
		lastKey = key
	}
	return out
}

func periodKey(d time.Time, frequency string) int {
	if frequency == strategyconfig.FrequencyQuarterly {
		return d.Year()*10 + (int(d.Month())-1)/3
	}
	return d.Year()*100 + int(d.Month())
}

// DataWindow returns the panel range a run needs: history before start for
// the lookback and min-history filters, through end.
func DataWindow(cfg *strategyconfig.Config) (time.Time, time.Time) {
	months := cfg.Signals.LookbackMonths
	if cfg.Universe.MinHistoryMonths > months {
		months = cfg.Universe.MinHistoryMonths
	}
	from := contracts.MonthsBefore(contracts.Day(cfg.Backtest.StartDate), months+windowBufferMonths)
	return from, contracts.Day(cfg.Backtest.EndDate)
}
