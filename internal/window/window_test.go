package window

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestAddMonths_Clamping(t *testing.T) {
	cases := []struct {
		name   string
		in     time.Time
		months int
		want   time.Time
	}{
		{"jan 31 plus 3 clamps to apr 30", date(2025, time.January, 31, 10, 0), 3, date(2025, time.April, 30, 10, 0)},
		{"jan 31 plus 1 clamps to feb 28", date(2025, time.January, 31, 0, 0), 1, date(2025, time.February, 28, 0, 0)},
		{"leap year feb 29 target", date(2023, time.November, 30, 9, 30), 3, date(2024, time.February, 29, 9, 30)},
		{"non-leap feb 28 target", date(2025, time.November, 30, 9, 30), 3, date(2026, time.February, 28, 9, 30)},
		{"mid-month passes through", date(2025, time.February, 14, 12, 15), 3, date(2025, time.May, 14, 12, 15)},
		{"year rollover", date(2025, time.November, 15, 8, 0), 3, date(2026, time.February, 15, 8, 0)},
		{"zero months identity", date(2025, time.March, 10, 9, 0), 0, date(2025, time.March, 10, 9, 0)},
		{"dec 31 plus 2 clamps to feb", date(2025, time.December, 31, 23, 59), 2, date(2026, time.February, 28, 23, 59)},
	}
	for _, tc := range cases {
		got := AddMonths(tc.in, tc.months)
		if !got.Equal(tc.want) {
			t.Errorf("%s: AddMonths(%v, %d) = %v, want %v", tc.name, tc.in, tc.months, got, tc.want)
		}
	}
}

func TestAddMonths_PreservesClock(t *testing.T) {
	in := date(2025, time.January, 31, 16, 45)
	got := AddMonths(in, 3)
	h, m, _ := got.Clock()
	if h != 16 || m != 45 {
		t.Errorf("clock = %02d:%02d, want 16:45", h, m)
	}
}

func TestRange(t *testing.T) {
	now := date(2025, time.February, 1, 0, 0)
	from, to := Range(now, 3)
	if !from.Equal(now) {
		t.Errorf("from = %v, want %v", from, now)
	}
	if want := date(2025, time.May, 1, 0, 0); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}
