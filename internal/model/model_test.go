package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hours = Restaurant{ID: 1, Name: "La Terraza", Opens: NewTimeOfDay(9, 0, 0), Closes: NewTimeOfDay(22, 0, 0)}

func clock(h, m int) time.Time {
	return time.Date(2025, 3, 13, h, m, 0, 0, time.UTC)
}

func TestRestaurantIsOpenAt(t *testing.T) {
	assert.False(t, hours.IsOpenAt(clock(8, 59)))
	assert.True(t, hours.IsOpenAt(clock(9, 0)))
	assert.True(t, hours.IsOpenAt(clock(21, 59)))
	assert.False(t, hours.IsOpenAt(clock(22, 0)))
}

func TestRestaurantMinutesUntilClose(t *testing.T) {
	assert.Equal(t, 90, hours.MinutesUntilClose(clock(20, 30)))
	assert.Equal(t, 1, hours.MinutesUntilClose(clock(21, 59)))
	assert.Equal(t, -1, hours.MinutesUntilClose(clock(22, 0)))
	assert.Equal(t, -1, hours.MinutesUntilClose(clock(7, 0)))
}

func TestRestaurantSlots(t *testing.T) {
	slots := hours.Slots(30*time.Minute, time.Hour)
	require.Len(t, slots, 25)
	assert.Equal(t, "09:00:00", slots[0].String())
	assert.Equal(t, "21:00:00", slots[len(slots)-1].String())
	assert.Nil(t, hours.Slots(0, time.Hour))

	short := Restaurant{Opens: NewTimeOfDay(12, 0, 0), Closes: NewTimeOfDay(12, 30, 0)}
	assert.Empty(t, short.Slots(30*time.Minute, time.Hour))
}

func TestRestaurantValidate(t *testing.T) {
	assert.NoError(t, hours.Validate())
	assert.ErrorIs(t, Restaurant{Opens: NewTimeOfDay(22, 0, 0), Closes: NewTimeOfDay(9, 0, 0)}.Validate(), ErrInvalidHours)
	assert.ErrorIs(t, Restaurant{Opens: NewTimeOfDay(9, 0, 0), Closes: NewTimeOfDay(9, 0, 0)}.Validate(), ErrInvalidHours)
}

func TestTimeOfDayJSON(t *testing.T) {
	b, err := json.Marshal(hours)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"opens":"09:00"`)
	assert.Contains(t, string(b), `"closes":"22:00"`)

	var r Restaurant
	require.NoError(t, json.Unmarshal([]byte(`{"opens":"10:30","closes":"23:15:00"}`), &r))
	assert.Equal(t, NewTimeOfDay(10, 30, 0), r.Opens)
	assert.Equal(t, NewTimeOfDay(23, 15, 0), r.Closes)
	assert.Error(t, json.Unmarshal([]byte(`{"opens":"25:00"}`), &r))
	assert.Equal(t, "8:30PM", NewTimeOfDay(20, 30, 0).Kitchen())
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("21:00:00")))
	assert.Equal(t, NewTimeOfDay(21, 0, 0), tod)
	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 9, 15, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(9, 15, 0), tod)
	assert.Error(t, tod.Scan(42))
}

func TestEnums(t *testing.T) {
	s, err := ParseSizeClass(" medium ")
	require.NoError(t, err)
	assert.Equal(t, SizeMedium, s)
	_, err = ParseSizeClass("XL")
	assert.ErrorIs(t, err, ErrUnknownEnum)
	l, err := ParseLocation("terrace")
	require.NoError(t, err)
	assert.Equal(t, "TER", l.CodePrefix())
	_, err = ParseLocation("ROOF")
	assert.ErrorIs(t, err, ErrUnknownEnum)

	for _, size := range Sizes {
		min, max := size.CapacityRange()
		assert.Positive(t, min)
		assert.GreaterOrEqual(t, max, min)
		assert.Positive(t, size.PriceCents())
	}
	assert.Equal(t, uint32(70000), SizeLarge.PriceCents())
}

func TestTableValidate(t *testing.T) {
	ok := Table{Code: "WIN-4-001", Size: SizeMedium, MinCapacity: 3, MaxCapacity: 4, Location: LocationWindow}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Code = " "
	assert.Error(t, bad.Validate())
	bad = ok
	bad.MinCapacity = 5
	assert.Error(t, bad.Validate())
	bad = ok
	bad.Location = "ROOF"
	assert.Error(t, bad.Validate())
}

func TestSameDay(t *testing.T) {
	mx := time.FixedZone("UTC-6", -6*60*60)
	a := time.Date(2025, 3, 14, 3, 0, 0, 0, time.UTC)  // 13th 21:00 local
	b := time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC) // 13th 09:00 local
	assert.True(t, SameDay(a, b, mx))
	assert.False(t, SameDay(a, b, time.UTC))
	assert.Equal(t, 13, Day(a, mx).Day())
}
