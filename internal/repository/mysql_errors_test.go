package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func dup(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: fmt.Sprintf("Duplicate entry '7-2025-03-13' for key '%s'", key)}
}

func TestMapReservationInsert(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"table day", dup("reservations.uq_reservations_table_day"), ErrTableDayTaken},
		{"active client", dup("reservations.uq_reservations_active_client"), ErrClientHasActive},
		{"unqualified key", dup("uq_reservations_table_day"), ErrTableDayTaken},
		{"other key", dup("reservations.PRIMARY"), ErrConflict},
		{"wrapped", fmt.Errorf("insert: %w", dup("reservations.uq_reservations_active_client")), ErrClientHasActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapReservationInsert(tc.in), tc.want)
		})
	}
}

func TestMapReservationInsertPassesOtherErrors(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	assert.Same(t, deadlock, mapReservationInsert(deadlock))

	plain := errors.New("connection reset")
	assert.Same(t, plain, mapReservationInsert(plain))
}

func TestDuplicateKeyWithoutKeyName(t *testing.T) {
	key, ok := duplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.True(t, ok)
	assert.Empty(t, key)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestDayStringUsesZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	at := time.Date(2025, time.March, 14, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-14", dayString(at, time.UTC))
	assert.Equal(t, "2025-03-13", dayString(at, ny))
}
