package contracts

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPricePanel_SortsAndIndexes(t *testing.T) {
	bars := []PriceBar{
		{Date: day(2024, 1, 3), Symbol: "BBB", Close: 11},
		{Date: day(2024, 1, 2), Symbol: "BBB", Close: 10},
		{Date: day(2024, 1, 2), Symbol: "AAA", Close: 20},
		{Date: time.Date(2024, 1, 4, 15, 30, 0, 0, time.UTC), Symbol: "AAA", Close: 21},
	}

	panel, err := NewPricePanel(bars)
	if err != nil {
		t.Fatalf("NewPricePanel() error = %v", err)
	}

	symbols := panel.Symbols()
	if len(symbols) != 2 || symbols[0] != "AAA" || symbols[1] != "BBB" {
		t.Errorf("Symbols() = %v, want [AAA BBB]", symbols)
	}

	dates := panel.Dates()
	if len(dates) != 3 {
		t.Fatalf("Dates() len = %d, want 3", len(dates))
	}
	if !dates[2].Equal(day(2024, 1, 4)) {
		t.Errorf("last date = %v, want 2024-01-04 (truncated)", dates[2])
	}

	series := panel.Series("BBB")
	if series[0].Close != 10 || series[1].Close != 11 {
		t.Errorf("Series(BBB) not sorted by date: %+v", series)
	}
	if panel.Len() != 4 {
		t.Errorf("Len() = %d, want 4", panel.Len())
	}
}

func TestNewPricePanel_RejectsDuplicates(t *testing.T) {
	bars := []PriceBar{
		{Date: day(2024, 1, 2), Symbol: "AAA", Close: 20},
		{Date: day(2024, 1, 2), Symbol: "AAA", Close: 21},
	}

	_, err := NewPricePanel(bars)
	if !errors.Is(err, ErrData) {
		t.Errorf("expected ErrData, got %v", err)
	}
}

func TestNewPricePanel_RejectsEmptySymbol(t *testing.T) {
	_, err := NewPricePanel([]PriceBar{{Date: day(2024, 1, 2), Close: 1}})
	if !errors.Is(err, ErrData) {
		t.Errorf("expected ErrData, got %v", err)
	}
}

func TestPricePanel_Lookups(t *testing.T) {
	panel, err := NewPricePanel([]PriceBar{
		{Date: day(2024, 1, 2), Symbol: "AAA", Close: 10},
		{Date: day(2024, 1, 5), Symbol: "AAA", Close: 12},
		{Date: day(2024, 1, 3), Symbol: "BBB", Close: 7},
	})
	if err != nil {
		t.Fatalf("NewPricePanel() error = %v", err)
	}

	if _, ok := panel.Bar("AAA", day(2024, 1, 3)); ok {
		t.Error("Bar(AAA, 01-03) should not exist")
	}

	bar, ok := panel.BarAtOrBefore("AAA", day(2024, 1, 4))
	if !ok || bar.Close != 10 {
		t.Errorf("BarAtOrBefore(AAA, 01-04) = %+v, %v; want close 10", bar, ok)
	}

	if _, ok := panel.BarAtOrBefore("AAA", day(2024, 1, 1)); ok {
		t.Error("BarAtOrBefore before first date should miss")
	}

	td, ok := panel.TradingDayAtOrBefore(day(2024, 1, 4))
	if !ok || !td.Equal(day(2024, 1, 3)) {
		t.Errorf("TradingDayAtOrBefore(01-04) = %v, want 01-03", td)
	}

	last, _ := panel.LastDate("AAA")
	if !last.Equal(day(2024, 1, 5)) {
		t.Errorf("LastDate(AAA) = %v", last)
	}

	if !panel.Start().Equal(day(2024, 1, 2)) || !panel.End().Equal(day(2024, 1, 5)) {
		t.Errorf("Start/End = %v/%v", panel.Start(), panel.End())
	}
}

func TestPricePanel_IsMonthEnd(t *testing.T) {
	panel, err := NewPricePanel([]PriceBar{
		{Date: day(2020, 1, 30), Symbol: "AAA", Close: 10},
		{Date: day(2020, 1, 31), Symbol: "BBB", Close: 10},
		{Date: day(2020, 2, 27), Symbol: "AAA", Close: 10},
		{Date: day(2020, 2, 28), Symbol: "AAA", Close: 11},
		{Date: day(2020, 3, 2), Symbol: "AAA", Close: 12},
	})
	if err != nil {
		t.Fatalf("NewPricePanel() error = %v", err)
	}

	tests := []struct {
		date time.Time
		want bool
	}{
		{day(2020, 1, 30), false},
		{day(2020, 1, 31), true}, // 다른 종목의 봉도 달력에 포함
		{day(2020, 2, 27), false},
		{day(2020, 2, 28), true},
		{day(2020, 2, 29), false}, // 거래일 아님
		{day(2020, 3, 2), true},   // 패널 마지막 봉
	}
	for _, tt := range tests {
		if got := panel.IsMonthEnd(tt.date); got != tt.want {
			t.Errorf("IsMonthEnd(%s) = %v, want %v", tt.date.Format(DateLayout), got, tt.want)
		}
	}
}

func TestPricePanel_AccessorsReturnCopies(t *testing.T) {
	panel, _ := NewPricePanel([]PriceBar{{Date: day(2024, 1, 2), Symbol: "AAA", Close: 10}})

	series := panel.Series("AAA")
	series[0].Close = 999

	bar, _ := panel.Bar("AAA", day(2024, 1, 2))
	if bar.Close != 10 {
		t.Errorf("panel mutated through Series(): close = %v", bar.Close)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(CacheErrorf("bad schema"), ErrData) {
		t.Error("cache errors must be data errors")
	}
	if errors.Is(SignalErrorf("x"), ErrData) {
		t.Error("signal errors are not data errors")
	}
	err := ConfigurationErrorf("skip_months %d >= lookback_months %d", 12, 12)
	if !errors.Is(err, ErrConfiguration) {
		t.Error("expected ErrConfiguration")
	}
	if err.Error() != "configuration error: skip_months 12 >= lookback_months 12" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
