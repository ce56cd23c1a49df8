package admission

import "github.com/iliyamo/restaurant-table-reservation/internal/model"

// ValidateCapacity accepts partySize iff it is positive and inside the
// table's [min, max] occupancy.
func ValidateCapacity(partySize int, t *model.Table) *Rejection {
	if t == nil {
		return reject(ReasonNullParameter, "table is required")
	}
	switch {
	case partySize <= 0:
		return reject(ReasonInvalidPartySize, "party size must be positive, got %d", partySize)
	case partySize < t.MinCapacity:
		return reject(ReasonBelowMinCapacity, "table %s seats at least %d", t.Code, t.MinCapacity)
	case partySize > t.MaxCapacity:
		return reject(ReasonExceedsMaxCapacity, "table %s seats at most %d", t.Code, t.MaxCapacity)
	}
	return nil
}
