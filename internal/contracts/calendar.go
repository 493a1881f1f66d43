package contracts

import "time"

// MonthsBefore returns t shifted back m calendar months, with the day clamped
// to the last day of the target month (Mar 31 − 1 month = Feb 29/28)
func MonthsBefore(t time.Time, m int) time.Time {
	t = Day(t)
	y, mon, d := t.Date()

	total := int(mon) - 1 - m
	y += floorDiv(total, 12)
	mon = time.Month(total - floorDiv(total, 12)*12 + 1)

	if last := DaysIn(y, mon); d > last {
		d = last
	}
	return time.Date(y, mon, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in month mon of year y
func DaysIn(y int, mon time.Month) int {
	return time.Date(y, mon+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthEnd returns the last calendar day of t's month
func MonthEnd(t time.Time) time.Time {
	y, mon, _ := t.Date()
	return time.Date(y, mon, DaysIn(y, mon), 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
