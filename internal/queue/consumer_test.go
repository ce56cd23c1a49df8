package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func TestJournalHandle(t *testing.T) {
	dir := t.TempDir()
	j := Journal{Dir: filepath.Join(dir, "logs")}

	r := model.Reservation{ID: 7, ClientID: 3, TableID: 2, PartySize: 4, CostCents: 50000,
		Status: model.StatusActive, At: time.Date(2025, 3, 13, 20, 30, 0, 0, time.UTC)}
	ev := NewReservationEvent("reservation.created", r, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NotEmpty(t, ev.ID)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, j.Handle(body))
	require.NoError(t, j.Handle(body))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "reservations.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reservation.created")
	assert.Contains(t, lines[0], "reservation_id=7")
	assert.Contains(t, lines[0], "at=2025-03-13T20:30:00Z")
	assert.Contains(t, lines[0], "status=ACTIVE")
}

func TestJournalRejectsGarbage(t *testing.T) {
	j := Journal{Dir: t.TempDir()}
	assert.Error(t, j.Handle([]byte("{not json")))
	assert.Error(t, j.Handle([]byte(`{"type":"reservation.created"}`)))
}
