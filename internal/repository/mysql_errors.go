package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// duplicateKey returns the violated unique key name when err is a MySQL
// duplicate-entry error.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return "", false
	}
	// Message looks like: Duplicate entry '7-2025-03-13' for key 'reservations.uq_reservations_table_day'
	msg := me.Message
	if i := strings.LastIndex(msg, "for key '"); i >= 0 {
		key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
		if j := strings.LastIndex(key, "."); j >= 0 {
			key = key[j+1:]
		}
		return key, true
	}
	return "", true
}

// mapReservationInsert turns the unique-key violations of the reservations
// table into the store's sentinel errors.
func mapReservationInsert(err error) error {
	key, dup := duplicateKey(err)
	if !dup {
		return err
	}
	switch key {
	case "uq_reservations_table_day":
		return ErrTableDayTaken
	case "uq_reservations_active_client":
		return ErrClientHasActive
	}
	return ErrConflict
}
