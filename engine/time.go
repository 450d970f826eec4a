package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH KEY - "YYYY-MM" month identifier used throughout the engine
// =============================================================================

// MonthKey identifies a calendar month. It is the grain at which budgets,
// lot configurations, manual stats and per-month config overrides are keyed.
type MonthKey string

// NewMonthKey builds a MonthKey from a year and month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// MonthKeyOf returns the MonthKey containing the given time.
func MonthKeyOf(t time.Time) MonthKey {
	return NewMonthKey(t.Year(), t.Month())
}

// Parse splits the key into year and month. The key must be exactly
// "YYYY-MM"; trailing characters (a full date, stray suffixes) are rejected
// so malformed keys cannot slip into month-keyed storage.
func (mk MonthKey) Parse() (int, time.Month, error) {
	if len(mk) != 7 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, mk)
	}
	t, err := time.Parse("2006-01", string(mk))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, mk)
	}
	return t.Year(), t.Month(), nil
}

// Valid reports whether the key is a well-formed YYYY-MM string.
func (mk MonthKey) Valid() bool {
	_, _, err := mk.Parse()
	return err == nil
}

// DaysInMonth returns the number of calendar days in the month (28-31).
// Malformed keys return 0.
func (mk MonthKey) DaysInMonth() int {
	year, month, err := mk.Parse()
	if err != nil {
		return 0
	}
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns the DateKey for the given day of the month. The day is not
// range-checked; callers iterate 1..DaysInMonth.
func (mk MonthKey) Day(day int) DateKey {
	return DateKey(fmt.Sprintf("%s-%02d", mk, day))
}

func (mk MonthKey) String() string { return string(mk) }

// =============================================================================
// DATE KEY - "YYYY-MM-DD" day identifier (occupancy records, daily series)
// =============================================================================

// DateKey identifies a single calendar day.
type DateKey string

// NewDateKey builds a DateKey from a time.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format("2006-01-02"))
}

// Parse returns the day as a UTC midnight time.
func (dk DateKey) Parse() (time.Time, error) {
	t, err := time.Parse("2006-01-02", string(dk))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, dk)
	}
	return t, nil
}

// MonthKey returns the month containing this day.
func (dk DateKey) MonthKey() MonthKey {
	if len(dk) < 7 {
		return ""
	}
	return MonthKey(dk[:7])
}

func (dk DateKey) String() string { return string(dk) }

// =============================================================================
// SPAN HELPERS
// =============================================================================

// RequestSpan returns the inclusive first and last day covered by a request
// starting at dateEvent and lasting daysQty days. A zero daysQty is treated
// as a single day, matching the amortization guard.
func RequestSpan(dateEvent time.Time, daysQty int) (time.Time, time.Time) {
	if daysQty < 1 {
		daysQty = 1
	}
	start := time.Date(dateEvent.Year(), dateEvent.Month(), dateEvent.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, daysQty-1)
}

// SpanContains reports whether day d falls within [start, end] inclusive.
func SpanContains(start, end, d time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

func dayTime(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
