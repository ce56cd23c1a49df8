package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a TimeOfDay from its components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// OfTime returns the time of day of t in t's own location.
func OfTime(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s)
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return OfTime(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Add shifts the time of day by d. The result is not wrapped around midnight
// so comparisons against a negative value stay meaningful.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// On returns the instant at this time of day on the calendar day of ref.
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ref.Location()).Add(time.Duration(t) * time.Second)
}

func (t TimeOfDay) String() string {
	if t < 0 || t >= secondsPerDay {
		return fmt.Sprintf("invalid(%d)", int(t))
	}
	h, rem := int(t)/3600, int(t)%3600
	return fmt.Sprintf("%02d:%02d:%02d", h, rem/60, rem%60)
}

// Kitchen renders the time the way the front desk reads it ("8:30 PM").
func (t TimeOfDay) Kitchen() string {
	return t.On(time.Time{}).Format(time.Kitchen)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String()[:5])
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Scan reads a MySQL TIME column.
func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case time.Time:
		*t = OfTime(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) { return t.String(), nil }

// ErrInvalidHours is returned when opening time is not strictly before closing time.
var ErrInvalidHours = errors.New("opening time must be before closing time")

// Restaurant is the single venue the service books tables for. It mirrors
// the `restaurants` table which holds exactly one row.
type Restaurant struct {
	ID      uint64    `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Phone   string    `json:"phone"`
	Opens   TimeOfDay `json:"opens"`
	Closes  TimeOfDay `json:"closes"`
}

// Validate enforces opens < closes within a single day.
func (r Restaurant) Validate() error {
	if r.Opens < 0 || r.Closes >= secondsPerDay || r.Opens >= r.Closes {
		return ErrInvalidHours
	}
	return nil
}

// IsOpenAt reports whether t (already in the restaurant's zone) falls in
// [opens, closes).
func (r Restaurant) IsOpenAt(t time.Time) bool {
	tod := OfTime(t)
	return tod >= r.Opens && tod < r.Closes
}

// MinutesUntilClose returns whole minutes left before closing, or -1 when
// the restaurant is closed at t.
func (r Restaurant) MinutesUntilClose(t time.Time) int {
	if !r.IsOpenAt(t) {
		return -1
	}
	return int(r.Closes-OfTime(t)) / 60
}

// Slots lists bookable start times from opening to closing minus margin,
// every step.
func (r Restaurant) Slots(step, margin time.Duration) []TimeOfDay {
	if step < time.Second {
		return nil
	}
	last := r.Closes.Add(-margin)
	var out []TimeOfDay
	for t := r.Opens; t <= last; t = t.Add(step) {
		out = append(out, t)
	}
	return out
}
