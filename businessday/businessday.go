// Package businessday owns the 06:00-to-06:00 accounting-day arithmetic.
//
// Internet cafes run a 3-shift cycle:
//
//	morning    06:00 - 15:59
//	afternoon  16:00 - 23:59
//	graveyard  00:00 - 05:59
//
// The business day boundary is 06:00. A shift starting before 06:00 belongs
// to the PREVIOUS calendar day's business day, so for business day Feb 9 a
// graveyard shift starting Feb 10 00:20 still counts under Feb 9.
//
// Every other component must derive window boundaries through this package;
// nothing else is allowed to re-implement the offset math.
package businessday

import "time"

// StartHour is the hour (0-23) at which a new business day starts.
const StartHour = 6

// CafeUTCOffsetHours is the fixed cafe timezone (Philippine time, UTC+8).
// Boundary math always uses this fixed offset, never the host locale.
const CafeUTCOffsetHours = 8

// Boundary times passed to the reporting API when querying a full window.
const (
	WindowTimeStart = "06:00"
	WindowTimeEnd   = "05:59"
)

type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftGraveyard ShiftType = "graveyard"
)

// ClassifyShift buckets a shift by its local start hour.
func ClassifyShift(startHour int) ShiftType {
	if startHour >= StartHour && startHour < 16 {
		return ShiftMorning
	}
	if startHour >= 16 {
		return ShiftAfternoon
	}
	return ShiftGraveyard
}

// ShiftOrder is the sort rank of a shift type within a business day:
// morning, then afternoon, then the graveyard shift that closes the day.
func ShiftOrder(t ShiftType) int {
	switch t {
	case ShiftMorning:
		return 0
	case ShiftAfternoon:
		return 1
	default:
		return 2
	}
}

// Window is one business day plus the date/time bracket the reporting API
// takes: the window runs from BusinessDate 06:00 to BusinessDate+1 05:59.
type Window struct {
	BusinessDate time.Time // midnight of the business date
	DateStart    time.Time // == BusinessDate
	DateEnd      time.Time // BusinessDate + 1 day
	TimeStart    string    // "06:00"
	TimeEnd      string    // "05:59"
}

// Start returns the instant the window opens (BusinessDate 06:00).
func (w Window) Start() time.Time {
	return w.DateStart.Add(StartHour * time.Hour)
}

// End returns the last minute of the window (BusinessDate+1 05:59).
func (w Window) End() time.Time {
	return w.DateEnd.Add(StartHour*time.Hour - time.Minute)
}

// WindowFor builds the query window for a given business date. The date's
// clock components are ignored.
func WindowFor(businessDate time.Time) Window {
	date := time.Date(businessDate.Year(), businessDate.Month(), businessDate.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		BusinessDate: date,
		DateStart:    date,
		DateEnd:      date.AddDate(0, 0, 1),
		TimeStart:    WindowTimeStart,
		TimeEnd:      WindowTimeEnd,
	}
}

// BusinessDayFor returns the business date a shift-start instant belongs to.
// Starts before 06:00 roll back to the previous calendar day; the AddDate
// arithmetic keeps month, year and leap boundaries correct.
func BusinessDayFor(start time.Time) time.Time {
	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if start.Hour() < StartHour {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// CurrentWindow resolves the active business day for "now" observed at a
// fixed UTC offset. Before 06:00 local the active business day is still
// yesterday's.
func CurrentWindow(now time.Time, utcOffsetHours int) Window {
	local := now.UTC().Add(time.Duration(utcOffsetHours) * time.Hour)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if local.Hour() < StartHour {
		date = date.AddDate(0, 0, -1)
	}
	return WindowFor(date)
}

// DateLayout is the wire format for business dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// FormatDate renders a date the way the reporting API expects (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
