package contracts

import (
	"sort"
	"time"
)

// DateLayout is the canonical date format for logs, cache keys and records
const DateLayout = "2006-01-02"

// PriceBar is one (date, symbol) row of the price panel
// Close is total-return adjusted; UnadjustedClose is the raw print
type PriceBar struct {
	Date            time.Time `json:"date"`
	Symbol          string    `json:"symbol"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	UnadjustedClose float64   `json:"unadjusted_close"`
	Volume          int64     `json:"volume"`
	Dividend        float64   `json:"dividend"`
}

// PricePanel is the immutable price input passed from S0 to every later stage
// ⭐ SSOT: S0 → S1/S2/Backtest 가격 패널 전달 (로드 후 읽기 전용)
type PricePanel struct {
	series  map[string][]PriceBar
	symbols []string
	dates   []time.Time
}

// Day truncates t to midnight UTC so that dates compare by calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewPricePanel builds a panel from unordered bars
// Duplicate (date, symbol) keys and blank symbols are rejected with ErrData.
func NewPricePanel(bars []PriceBar) (*PricePanel, error) {
	p := &PricePanel{series: make(map[string][]PriceBar)}
	calendar := make(map[time.Time]struct{})

	for _, bar := range bars {
		if bar.Symbol == "" {
			return nil, DataErrorf("bar on %s has empty symbol", bar.Date.Format(DateLayout))
		}
		bar.Date = Day(bar.Date)
		p.series[bar.Symbol] = append(p.series[bar.Symbol], bar)
		calendar[bar.Date] = struct{}{}
	}

	for symbol, series := range p.series {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		for i := 1; i < len(series); i++ {
			if series[i].Date.Equal(series[i-1].Date) {
				return nil, DataErrorf("duplicate bar for %s on %s", symbol, series[i].Date.Format(DateLayout))
			}
		}
		p.symbols = append(p.symbols, symbol)
	}
	sort.Strings(p.symbols)

	p.dates = make([]time.Time, 0, len(calendar))
	for d := range calendar {
		p.dates = append(p.dates, d)
	}
	sort.Slice(p.dates, func(i, j int) bool { return p.dates[i].Before(p.dates[j]) })

	return p, nil
}

// Symbols returns all symbols in sorted order
func (p *PricePanel) Symbols() []string {
	out := make([]string, len(p.symbols))
	copy(out, p.symbols)
	return out
}

// Dates returns the union trading calendar in ascending order
func (p *PricePanel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Len returns the number of bars in the panel
func (p *PricePanel) Len() int {
	n := 0
	for _, series := range p.series {
		n += len(series)
	}
	return n
}

// Empty reports whether the panel holds no bars
func (p *PricePanel) Empty() bool {
	return len(p.dates) == 0
}

// Start returns the first trading date (zero time if empty)
func (p *PricePanel) Start() time.Time {
	if len(p.dates) == 0 {
		return time.Time{}
	}
	return p.dates[0]
}

// End returns the last trading date (zero time if empty)
func (p *PricePanel) End() time.Time {
	if len(p.dates) == 0 {
		return time.Time{}
	}
	return p.dates[len(p.dates)-1]
}

// HasSymbol reports whether the panel holds any bar for symbol
func (p *PricePanel) HasSymbol(symbol string) bool {
	_, ok := p.series[symbol]
	return ok
}

// Series returns a copy of the bars for symbol in date order
func (p *PricePanel) Series(symbol string) []PriceBar {
	series := p.series[symbol]
	out := make([]PriceBar, len(series))
	copy(out, series)
	return out
}

// Bar returns the bar for symbol on exactly date
func (p *PricePanel) Bar(symbol string, date time.Time) (PriceBar, bool) {
	series := p.series[symbol]
	date = Day(date)
	i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(date) })
	if i < len(series) && series[i].Date.Equal(date) {
		return series[i], true
	}
	return PriceBar{}, false
}

// BarAtOrBefore returns the latest bar for symbol dated on or before date
func (p *PricePanel) BarAtOrBefore(symbol string, date time.Time) (PriceBar, bool) {
	series := p.series[symbol]
	date = Day(date)
	i := sort.Search(len(series), func(i int) bool { return series[i].Date.After(date) })
	if i == 0 {
		return PriceBar{}, false
	}
	return series[i-1], true
}

// TradingDayAtOrBefore returns the nearest panel trading day on or before date
func (p *PricePanel) TradingDayAtOrBefore(date time.Time) (time.Time, bool) {
	date = Day(date)
	i := sort.Search(len(p.dates), func(i int) bool { return p.dates[i].After(date) })
	if i == 0 {
		return time.Time{}, false
	}
	return p.dates[i-1], true
}

// IsMonthEnd reports whether date is a panel trading day with no later
// trading day in the same calendar month
func (p *PricePanel) IsMonthEnd(date time.Time) bool {
	date = Day(date)
	i := sort.Search(len(p.dates), func(i int) bool { return !p.dates[i].Before(date) })
	if i == len(p.dates) || !p.dates[i].Equal(date) {
		return false
	}
	return i+1 == len(p.dates) || p.dates[i+1].Month() != date.Month() || p.dates[i+1].Year() != date.Year()
}

// FirstDate returns the first observation date of symbol
func (p *PricePanel) FirstDate(symbol string) (time.Time, bool) {
	series := p.series[symbol]
	if len(series) == 0 {
		return time.Time{}, false
	}
	return series[0].Date, true
}

// LastDate returns the last observation date of symbol
func (p *PricePanel) LastDate(symbol string) (time.Time, bool) {
	series := p.series[symbol]
	if len(series) == 0 {
		return time.Time{}, false
	}
	return series[len(series)-1].Date, true
}

// Bars flattens the panel ordered by symbol then date
func (p *PricePanel) Bars() []PriceBar {
	out := make([]PriceBar, 0, p.Len())
	for _, symbol := range p.symbols {
		out = append(out, p.series[symbol]...)
	}
	return out
}

// MembershipRecord is one point-in-time index membership observation
type MembershipRecord struct {
	Date      time.Time `json:"date"`
	Symbol    string    `json:"symbol"`
	IndexName string    `json:"index_name"`
	IsMember  bool      `json:"is_member"`
}
