// Package schedule holds the pure date arithmetic behind recurring
// transactions and goal pacing. Nothing here reads the wall clock.
package schedule

import (
	"time"

	"pennywise/internal/models"
)

// Anchor pins a schedule to a weekday, a day of the month, or a month/day pair.
// Only the fields relevant to the frequency are consulted.
type Anchor struct {
	Weekday    time.Weekday
	DayOfMonth int
	Month      time.Month
}

// AnchorFor resolves the anchor of a recurring definition, falling back to the
// start date for any component the definition leaves unset.
func AnchorFor(r *models.RecurringTransaction) Anchor {
	a := Anchor{
		Weekday:    r.StartDate.Weekday(),
		DayOfMonth: r.StartDate.Day(),
		Month:      r.StartDate.Month(),
	}
	if r.DayOfWeek != nil {
		a.Weekday = time.Weekday(*r.DayOfWeek)
	}
	if r.DayOfMonth != nil {
		a.DayOfMonth = *r.DayOfMonth
	}
	if r.MonthOfYear != nil {
		a.Month = time.Month(*r.MonthOfYear)
	}
	return a
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextOccurrence returns the occurrence that follows current. The result is
// always strictly after current and keeps current's time of day and location.
//
// Monthly anchors past the end of the target month clamp to its last day.
// Yearly anchors on Feb 29 clamp to Feb 28 in non-leap years.
func NextOccurrence(current time.Time, freq models.Frequency, a Anchor) time.Time {
	switch freq {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		delta := (int(a.Weekday) - int(current.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return current.AddDate(0, 0, delta)
	case models.FrequencyMonthly:
		first := time.Date(current.Year(), current.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		return at(current, first.Year(), first.Month(), a.DayOfMonth)
	case models.FrequencyYearly:
		return at(current, current.Year()+1, a.Month, a.DayOfMonth)
	}
	// Unknown frequencies are rejected at creation; advance daily so callers
	// never loop on a date that does not move.
	return current.AddDate(0, 0, 1)
}

// FirstOccurrence returns the earliest anchor-aligned date on or after start.
func FirstOccurrence(start time.Time, freq models.Frequency, a Anchor) time.Time {
	switch freq {
	case models.FrequencyWeekly:
		if start.Weekday() == a.Weekday {
			return start
		}
	case models.FrequencyMonthly:
		candidate := at(start, start.Year(), start.Month(), a.DayOfMonth)
		if !candidate.Before(start) {
			return candidate
		}
	case models.FrequencyYearly:
		candidate := at(start, start.Year(), a.Month, a.DayOfMonth)
		if !candidate.Before(start) {
			return candidate
		}
	default:
		return start
	}
	return NextOccurrence(start, freq, a)
}

// Occurrences lists up to n occurrences starting at from (inclusive) and not
// after until.
func Occurrences(from, until time.Time, freq models.Frequency, a Anchor, n int) []time.Time {
	var out []time.Time
	for d := from; !d.After(until) && len(out) < n; d = NextOccurrence(d, freq, a) {
		out = append(out, d)
	}
	return out
}

// MonthsBetween counts the months of runway from from to to. A target day of
// month later than the starting day adds one month for the partial month.
// The result is never below 1.
func MonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() > from.Day() {
		months++
	}
	if months < 1 {
		return 1
	}
	return months
}

// at builds a date in year/month on day clamped to the month length, with the
// clock and location of ref.
func at(ref time.Time, year int, month time.Month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}
