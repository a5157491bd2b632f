package journey

import "time"

const dateLayout = "2006-01-02"

// civilDay returns the calendar day of t in loc as a UTC midnight, so that
// differences between days are exact multiples of 24 hours.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// ComputeReflectionDelay counts the calendar days left before consent may be
// signed: signatures open ReflectionDays after the day of the
// pre-consultation. Without a pre-consultation nothing can be signed yet.
func ComputeReflectionDelay(preConsult *time.Time, now time.Time, r Rules) ReflectionDelay {
	if preConsult == nil {
		return ReflectionDelay{CanSign: !r.Enforced}
	}
	loc := r.location()
	available := civilDay(*preConsult, loc).AddDate(0, 0, r.ReflectionDays)

	out := ReflectionDelay{AvailableDate: available.Format(dateLayout)}
	if !r.Enforced {
		out.CanSign = true
		return out
	}

	left := daysBetween(civilDay(now, loc), available)
	if left < 0 {
		left = 0
	}
	out.DaysLeft = left
	out.CanSign = left == 0
	return out
}

// CheckActSpacing reports whether the act appointment is at least
// ActSpacingDays calendar days after the pre-consultation. An act booked
// without a pre-consultation is never well spaced; no act is nothing to check.
func CheckActSpacing(preConsult, act *time.Time, r Rules) bool {
	if act == nil {
		return true
	}
	if preConsult == nil {
		return false
	}
	loc := r.location()
	return daysBetween(civilDay(*preConsult, loc), civilDay(*act, loc)) >= r.ActSpacingDays
}
