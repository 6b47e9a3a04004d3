// Package recurrence advances recurring-expense due dates.
package recurrence

import (
	"fmt"
	"time"
)

type Frequency string

const (
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Frequencies lists every supported frequency.
var Frequencies = []Frequency{Weekly, Biweekly, Monthly, Quarterly, Yearly}

func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Next returns the occurrence after due. Month-based frequencies keep
// anchorDay (usually the start date's day of month) and clamp it to the
// length of the target month: Jan 31 -> Feb 28 -> Mar 31.
func Next(due time.Time, f Frequency, anchorDay int) (time.Time, error) {
	due = Day(due)
	switch f {
	case Weekly:
		return due.AddDate(0, 0, 7), nil
	case Biweekly:
		return due.AddDate(0, 0, 14), nil
	case Monthly:
		return addMonths(due, 1, anchorDay), nil
	case Quarterly:
		return addMonths(due, 3, anchorDay), nil
	case Yearly:
		return addMonths(due, 12, anchorDay), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency: %s", f)
	}
}

func addMonths(t time.Time, months, anchorDay int) time.Time {
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = t.Day()
	}
	// Day 1 never overflows, so AddDate lands in the intended month.
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := min(anchorDay, DaysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
