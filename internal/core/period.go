package core

import (
	"fmt"
	"time"
)

// Period identifies a calendar month. Its string form is the zero-padded
// "YYYY-MM" key used across all stored records.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Next returns the following month, rolling December over into January of
// the next year.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding month. It is derived by stepping one day back
// from the first day of the period, so year boundaries are handled by the
// calendar rather than by index arithmetic.
func (p Period) Prev() Period {
	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return PeriodOf(first.AddDate(0, 0, -1))
}

// Days returns the number of days in the month.
func (p Period) Days() int {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// DefaultReminderDay is the day of month from which income planning shifts
// to the next period.
const DefaultReminderDay = 25

// TargetPlanningPeriod returns the period whose income entry should be
// checked at time now. From reminderDay onward the upcoming month is the
// planning target, before that the current one.
func TargetPlanningPeriod(now time.Time, reminderDay int) Period {
	p := PeriodOf(now)
	if now.Day() >= reminderDay {
		return p.Next()
	}
	return p
}
