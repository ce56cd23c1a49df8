package admission

import "time"

// Policy holds the tunable admission constants.
type Policy struct {
	// LeadTime is the minimum distance between now and the reserved instant.
	LeadTime time.Duration
	// HorizonMonths is how many calendar months ahead bookings are accepted.
	HorizonMonths int
	// ClosingMargin is the service time the last seating must leave before
	// closing.
	ClosingMargin time.Duration
	// Location is the restaurant's zone; calendar days and opening hours are
	// evaluated in it.
	Location *time.Location
}

// DefaultPolicy returns 24h lead time, a one month horizon and a one hour
// closing margin evaluated in UTC.
func DefaultPolicy() Policy {
	return Policy{
		LeadTime:      24 * time.Hour,
		HorizonMonths: 1,
		ClosingMargin: time.Hour,
		Location:      time.UTC,
	}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// AddMonthsClamped adds n calendar months to t. When the target month is
// shorter than t's day of month the result lands on its last day, so
// Jan 31 + 1 month is Feb 28 (or 29) instead of rolling into March.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
