package admission

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// IsAvailable reports whether the table has no ACTIVE reservation on the
// calendar day of at. The conflict granularity is the whole day.
func IsAvailable(ctx context.Context, q repository.Queries, t *model.Table, at time.Time) (bool, error) {
	r, err := q.ActiveReservationForTable(ctx, t.ID, at)
	if err != nil {
		return false, err
	}
	return r == nil, nil
}

// HasActiveReservation reports whether the client already holds an ACTIVE
// reservation anywhere in the restaurant.
func HasActiveReservation(ctx context.Context, q repository.Queries, c *model.Client) (bool, error) {
	r, err := q.ActiveReservationForClient(ctx, c.ID)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}
