package utils

import "time"

const DateLayout = "2006-01-02"

// Day truncates t to its civil date at midnight UTC, keeping the calendar fields of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextWorkingDay returns the first Monday-Friday date strictly after t.
func NextWorkingDay(t time.Time) time.Time {
	next := Day(t).AddDate(0, 0, 1)
	for !IsWorkingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func WorkingDayOnOrAfter(t time.Time) time.Time {
	d := Day(t)
	if IsWorkingDay(d) {
		return d
	}
	return NextWorkingDay(d)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// InRange reports whether d lies in [from, to]; a nil bound is open.
func InRange(d time.Time, from, to *time.Time) bool {
	d = Day(d)
	if from != nil && d.Before(Day(*from)) {
		return false
	}
	if to != nil && d.After(Day(*to)) {
		return false
	}
	return true
}
