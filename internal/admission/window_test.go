package admission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

var (
	testNow   = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	testHours = model.Restaurant{ID: 1, Name: "La Terraza", Opens: model.NewTimeOfDay(9, 0, 0), Closes: model.NewTimeOfDay(22, 0, 0)}
)

func at(day, hour, minute, second int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, second, 0, time.UTC)
}

func reasonOf(rej *admission.Rejection) admission.Reason {
	if rej == nil {
		return ""
	}
	return rej.Reason
}

func TestValidateWindow(t *testing.T) {
	p := admission.DefaultPolicy()
	cases := []struct {
		name string
		at   time.Time
		want admission.Reason
	}{
		{"exactly lead time", testNow.Add(24 * time.Hour), ""},
		{"one second short of lead time", testNow.Add(24*time.Hour - time.Second), admission.ReasonLeadTimeTooShort},
		{"two hours ahead", testNow.Add(2 * time.Hour), admission.ReasonLeadTimeTooShort},
		{"in the past", testNow.Add(-time.Hour), admission.ReasonLeadTimeTooShort},
		{"exactly at horizon", time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC), ""},
		{"one second past horizon", time.Date(2025, time.April, 10, 12, 0, 1, 0, time.UTC), admission.ReasonHorizonExceeded},
		{"next day past horizon", time.Date(2025, time.April, 11, 10, 0, 0, 0, time.UTC), admission.ReasonHorizonExceeded},
		{"at opening", at(13, 9, 0, 0), ""},
		{"one second before opening", at(13, 8, 59, 59), admission.ReasonBeforeOpening},
		{"early morning", at(13, 2, 0, 0), admission.ReasonBeforeOpening},
		{"last seating", at(13, 21, 0, 0), ""},
		{"one second after last seating", at(13, 21, 0, 1), admission.ReasonTooCloseToClosing},
		{"21:15 with 22:00 close", at(13, 21, 15, 0), admission.ReasonTooCloseToClosing},
		{"after closing", at(13, 23, 0, 0), admission.ReasonTooCloseToClosing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reasonOf(admission.ValidateWindow(tc.at, testNow, testHours, p)))
		})
	}
}

func TestValidateWindowRuleOrder(t *testing.T) {
	p := admission.DefaultPolicy()
	// Too soon and before opening: the lead-time rule is evaluated first.
	assert.Equal(t, admission.ReasonLeadTimeTooShort,
		reasonOf(admission.ValidateWindow(at(10, 13, 0, 0).Add(-6*time.Hour), testNow, testHours, p)))
	// Past the horizon and after closing: horizon wins over hours.
	assert.Equal(t, admission.ReasonHorizonExceeded,
		reasonOf(admission.ValidateWindow(time.Date(2025, time.May, 1, 23, 30, 0, 0, time.UTC), testNow, testHours, p)))
}

func TestValidateWindowHonoursPolicy(t *testing.T) {
	p := admission.Policy{LeadTime: 2 * time.Hour, HorizonMonths: 2, ClosingMargin: 30 * time.Minute}
	assert.Nil(t, admission.ValidateWindow(testNow.Add(3*time.Hour), testNow, testHours, p))
	assert.Nil(t, admission.ValidateWindow(time.Date(2025, time.May, 9, 21, 30, 0, 0, time.UTC), testNow, testHours, p))
	assert.Equal(t, admission.ReasonTooCloseToClosing,
		reasonOf(admission.ValidateWindow(at(13, 21, 31, 0), testNow, testHours, p)))
}

func TestValidateHoursUsesRestaurantZone(t *testing.T) {
	p := admission.DefaultPolicy()
	p.Location = time.FixedZone("UTC-6", -6*60*60)
	// 03:00 UTC is 21:00 local, the last seating.
	assert.Nil(t, admission.ValidateHours(at(14, 3, 0, 0), testHours, p))
	// 15:30 UTC is 09:30 local.
	assert.Nil(t, admission.ValidateHours(at(14, 15, 30, 0), testHours, p))
	// 14:00 UTC is 08:00 local.
	assert.Equal(t, admission.ReasonBeforeOpening, reasonOf(admission.ValidateHours(at(14, 14, 0, 0), testHours, p)))
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC), 1, time.Date(2025, 2, 28, 20, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 1, time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)},
		{time.Date(2025, 12, 31, 8, 15, 0, 0, time.UTC), 2, time.Date(2026, 2, 28, 8, 15, 0, 0, time.UTC)},
		{time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		require.True(t, tc.want.Equal(admission.AddMonthsClamped(tc.in, tc.n)), "%s + %d months", tc.in, tc.n)
	}
}

func TestValidateCapacity(t *testing.T) {
	table := &model.Table{Code: "A1", MinCapacity: 2, MaxCapacity: 4}
	for size := -1; size <= 6; size++ {
		rej := admission.ValidateCapacity(size, table)
		switch {
		case size <= 0:
			assert.Equal(t, admission.ReasonInvalidPartySize, reasonOf(rej), "size %d", size)
		case size < 2:
			assert.Equal(t, admission.ReasonBelowMinCapacity, reasonOf(rej), "size %d", size)
		case size > 4:
			assert.Equal(t, admission.ReasonExceedsMaxCapacity, reasonOf(rej), "size %d", size)
		default:
			assert.Nil(t, rej, "size %d", size)
		}
	}
	assert.Equal(t, admission.ReasonNullParameter, reasonOf(admission.ValidateCapacity(2, nil)))
}

func TestRejectionHTTPStatus(t *testing.T) {
	assert.Equal(t, 422, (&admission.Rejection{Reason: admission.ReasonLeadTimeTooShort}).HTTPStatus())
	assert.Equal(t, 409, (&admission.Rejection{Reason: admission.ReasonTableUnavailable}).HTTPStatus())
	assert.Equal(t, 409, (&admission.Rejection{Reason: admission.ReasonAlreadyCancelled}).HTTPStatus())
	assert.Equal(t, 400, (&admission.Rejection{Reason: admission.ReasonNullParameter}).HTTPStatus())
	assert.Equal(t, 500, (&admission.Rejection{Reason: admission.ReasonStorageError}).HTTPStatus())
}
