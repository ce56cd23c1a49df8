package admission

import (
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ValidateLeadTime enforces the lead-time floor and the booking horizon.
func ValidateLeadTime(at, now time.Time, p Policy) *Rejection {
	if earliest := now.Add(p.LeadTime); at.Before(earliest) {
		return reject(ReasonLeadTimeTooShort, "earliest bookable time is %s", earliest.In(p.loc()).Format(time.RFC3339))
	}
	if latest := AddMonthsClamped(now, p.HorizonMonths); at.After(latest) {
		return reject(ReasonHorizonExceeded, "latest bookable time is %s", latest.In(p.loc()).Format(time.RFC3339))
	}
	return nil
}

// ValidateHours checks the time of day of at against the opening hours,
// keeping ClosingMargin free before closing.
func ValidateHours(at time.Time, hours model.Restaurant, p Policy) *Rejection {
	tod := model.OfTime(at.In(p.loc()))
	if tod < hours.Opens {
		return reject(ReasonBeforeOpening, "restaurant opens at %s", hours.Opens)
	}
	if last := hours.Closes.Add(-p.ClosingMargin); tod > last {
		return reject(ReasonTooCloseToClosing, "last seating starts at %s", last)
	}
	return nil
}

// ValidateWindow runs the lead-time, horizon, opening and closing rules in
// that order and returns the first violation.
func ValidateWindow(at, now time.Time, hours model.Restaurant, p Policy) *Rejection {
	if rej := ValidateLeadTime(at, now, p); rej != nil {
		return rej
	}
	return ValidateHours(at, hours, p)
}
