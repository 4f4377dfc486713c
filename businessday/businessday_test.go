package businessday

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestBusinessDayForBoundary(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"just before boundary", at(2026, 2, 10, 5, 59, 59), date(2026, 2, 9)},
		{"exactly at boundary", at(2026, 2, 10, 6, 0, 0), date(2026, 2, 10)},
		{"graveyard after midnight", at(2026, 2, 10, 0, 20, 0), date(2026, 2, 9)},
		{"afternoon", at(2026, 2, 9, 16, 0, 0), date(2026, 2, 9)},
		{"month rollover", at(2026, 3, 1, 0, 30, 0), date(2026, 2, 28)},
		{"leap month rollover", at(2024, 3, 1, 0, 30, 0), date(2024, 2, 29)},
		{"year rollover", at(2026, 1, 1, 2, 0, 0), date(2025, 12, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BusinessDayFor(tc.start)
			if !got.Equal(tc.want) {
				t.Fatalf("BusinessDayFor(%v) = %v, want %v", tc.start, got, tc.want)
			}
		})
	}
}

func TestWindowFor(t *testing.T) {
	w := WindowFor(at(2026, 2, 9, 13, 45, 0))

	if !w.BusinessDate.Equal(date(2026, 2, 9)) {
		t.Errorf("BusinessDate = %v", w.BusinessDate)
	}
	if !w.Start().Equal(at(2026, 2, 9, 6, 0, 0)) {
		t.Errorf("Start() = %v", w.Start())
	}
	if !w.End().Equal(at(2026, 2, 10, 5, 59, 0)) {
		t.Errorf("End() = %v", w.End())
	}
	if w.TimeStart != "06:00" || w.TimeEnd != "05:59" {
		t.Errorf("time bracket = %q..%q", w.TimeStart, w.TimeEnd)
	}
	if !w.DateEnd.Equal(date(2026, 2, 10)) {
		t.Errorf("DateEnd = %v", w.DateEnd)
	}
}

func TestCurrentWindow(t *testing.T) {
	// 21:30 UTC is 05:30 the next day at UTC+8, still inside the
	// previous business day.
	w := CurrentWindow(at(2026, 2, 9, 21, 30, 0), 8)
	if !w.BusinessDate.Equal(date(2026, 2, 9)) {
		t.Errorf("before 06:00 local: BusinessDate = %v, want 2026-02-09", w.BusinessDate)
	}

	// 22:00 UTC is 06:00 next day local: a fresh business day.
	w = CurrentWindow(at(2026, 2, 9, 22, 0, 0), 8)
	if !w.BusinessDate.Equal(date(2026, 2, 10)) {
		t.Errorf("at 06:00 local: BusinessDate = %v, want 2026-02-10", w.BusinessDate)
	}
}

func TestClassifyShift(t *testing.T) {
	cases := []struct {
		hour int
		want ShiftType
	}{
		{6, ShiftMorning},
		{15, ShiftMorning},
		{16, ShiftAfternoon},
		{23, ShiftAfternoon},
		{0, ShiftGraveyard},
		{5, ShiftGraveyard},
	}
	for _, tc := range cases {
		if got := ClassifyShift(tc.hour); got != tc.want {
			t.Errorf("ClassifyShift(%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestShiftOrder(t *testing.T) {
	if !(ShiftOrder(ShiftMorning) < ShiftOrder(ShiftAfternoon) &&
		ShiftOrder(ShiftAfternoon) < ShiftOrder(ShiftGraveyard)) {
		t.Fatal("shift order must be morning < afternoon < graveyard")
	}
}
