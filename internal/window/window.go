// Package window computes the rolling publication window for calendar
// output. Month arithmetic clamps the day of month instead of spilling
// into the following month the way time.AddDate does.
package window

import "time"

// DefaultMonths is the horizon used when no window is configured.
const DefaultMonths = 3

// Range returns the inclusive window [now, now+months]. An event belongs
// to the window when its start falls inside these bounds.
func Range(now time.Time, months int) (time.Time, time.Time) {
	return now, AddMonths(now, months)
}

// AddMonths advances t by the given number of calendar months, keeping the
// day of month where possible and clamping to the target month's last day
// otherwise (Jan 31 + 3 = Apr 30, not May 1). The clock is preserved.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	ty, rem := y+total/12, total%12
	if rem < 0 {
		rem += 12
		ty--
	}
	tm := time.Month(rem + 1)
	if last := daysIn(ty, tm); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month; day 0 of the next
// month normalizes to the last day of this one.
func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
