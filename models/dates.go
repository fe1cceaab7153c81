package models

import "time"

const (
	DateLayout     = "2006-01-02"
	WeekLabel      = "02 Jan 2006"
	MatrixDayLabel = "02-01-2006"
	MonthKeyLayout = "2006-01"
)

// DateOf truncates t to its calendar day in UTC. All dates stored by the
// service go through it so that equal days compare equal.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// WeekEnd is the last day of the 7-day window starting at weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return DateOf(weekStart).AddDate(0, 0, 6)
}

// CalendarWeek returns the Monday and Sunday around day.
func CalendarWeek(day time.Time) (time.Time, time.Time) {
	day = DateOf(day)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}
