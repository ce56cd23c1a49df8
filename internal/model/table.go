package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEnum is wrapped by the Parse functions when the input is not a
// member of the enum.
var ErrUnknownEnum = errors.New("unknown enum value")

// SizeClass is the closed set of table sizes.
type SizeClass string

const (
	SizeSmall  SizeClass = "SMALL"
	SizeMedium SizeClass = "MEDIUM"
	SizeLarge  SizeClass = "LARGE"
)

// Location is the closed set of areas a table can be placed in.
type Location string

const (
	LocationTerrace Location = "TERRACE"
	LocationWindow  Location = "WINDOW"
	LocationGeneral Location = "GENERAL"
)

// Sizes and Locations list every accepted enum value in display order.
var (
	Sizes     = []SizeClass{SizeSmall, SizeMedium, SizeLarge}
	Locations = []Location{LocationTerrace, LocationWindow, LocationGeneral}
)

// ParseSizeClass converts free text into a SizeClass. Matching is case
// insensitive; anything outside the enum is an error.
func ParseSizeClass(s string) (SizeClass, error) {
	v := SizeClass(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case SizeSmall, SizeMedium, SizeLarge:
		return v, nil
	}
	return "", fmt.Errorf("size class %q: %w", s, ErrUnknownEnum)
}

// ParseLocation converts free text into a Location.
func ParseLocation(s string) (Location, error) {
	v := Location(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case LocationTerrace, LocationWindow, LocationGeneral:
		return v, nil
	}
	return "", fmt.Errorf("location %q: %w", s, ErrUnknownEnum)
}

// CapacityRange returns the min and max seats a table of this size accepts.
func (s SizeClass) CapacityRange() (min, max int) {
	switch s {
	case SizeSmall:
		return 1, 2
	case SizeMedium:
		return 3, 4
	case SizeLarge:
		return 5, 8
	}
	return 0, 0
}

// PriceCents is the default reservation cost for a table of this size.
func (s SizeClass) PriceCents() uint32 {
	switch s {
	case SizeSmall:
		return 30000
	case SizeMedium:
		return 50000
	case SizeLarge:
		return 70000
	}
	return 0
}

// CodePrefix is the three letter prefix used in generated table codes.
func (l Location) CodePrefix() string {
	switch l {
	case LocationTerrace:
		return "TER"
	case LocationWindow:
		return "WIN"
	}
	return "GEN"
}

// Table represents a row of the `dining_tables` table.
//
// Fields:
//  ID          – primary key identifier.
//  Code        – unique human readable code such as TER-2-001.
//  Size        – size class of the table.
//  MinCapacity – smallest party the table accepts.
//  MaxCapacity – largest party the table accepts.
//  Location    – area of the restaurant the table sits in.
type Table struct {
	ID          uint64    `json:"id"`
	Code        string    `json:"code"`
	Size        SizeClass `json:"size"`
	MinCapacity int       `json:"min_capacity"`
	MaxCapacity int       `json:"max_capacity"`
	Location    Location  `json:"location"`
}

// Validate checks the invariants a table must satisfy before it is stored.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("table code is required")
	}
	if _, err := ParseSizeClass(string(t.Size)); err != nil {
		return err
	}
	if _, err := ParseLocation(string(t.Location)); err != nil {
		return err
	}
	if t.MinCapacity < 1 || t.MinCapacity > t.MaxCapacity {
		return fmt.Errorf("invalid capacity range %d-%d", t.MinCapacity, t.MaxCapacity)
	}
	return nil
}
