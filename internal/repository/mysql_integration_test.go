package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

// plainCipher stores phones unchanged.
type plainCipher struct{}

func (plainCipher) Encrypt(p string) (string, error) { return p, nil }
func (plainCipher) Decrypt(s string) (string, error) { return s, nil }
func (plainCipher) Digest(p string) string           { return "h:" + p }

// MySQLSuite runs against the database named by TEST_MYSQL_DSN and wipes its
// reservation data before every test.
type MySQLSuite struct {
	suite.Suite
	db      *sql.DB
	ctrl    *admission.Controller
	clients *repository.ClientRepo
	tables  *repository.TableRepo
	repo    *repository.ReservationRepo
	now     time.Time
	at      time.Time
}

func TestMySQLSuite(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	suite.Run(t, &MySQLSuite{db: db})
}

func (s *MySQLSuite) SetupSuite() {
	s.Require().NoError(database.Migrate(context.Background(), s.db))
	s.clients = repository.NewClientRepo(s.db, plainCipher{})
	s.tables = repository.NewTableRepo(s.db)
	s.repo = repository.NewReservationRepo(s.db, plainCipher{}, time.UTC)
	s.ctrl = admission.New(repository.NewReservationStore(s.db, time.UTC))
}

func (s *MySQLSuite) SetupTest() {
	ctx := context.Background()
	for _, q := range []string{`DELETE FROM reservations`, `DELETE FROM clients`, `DELETE FROM dining_tables`} {
		_, err := s.db.ExecContext(ctx, q)
		s.Require().NoError(err)
	}
	_, err := repository.NewRestaurantRepo(s.db).Save(ctx, model.Restaurant{
		Name: "Test", Opens: model.NewTimeOfDay(9, 0, 0), Closes: model.NewTimeOfDay(22, 0, 0),
	})
	s.Require().NoError(err)

	s.now = time.Now().UTC()
	d := s.now.AddDate(0, 0, 3)
	s.at = time.Date(d.Year(), d.Month(), d.Day(), 13, 0, 0, 0, time.UTC)
}

func (s *MySQLSuite) newClients(n int) []model.Client {
	in := make([]model.Client, n)
	for i := range in {
		in[i] = model.Client{Name: "Guest", Phone: "555" + string(rune('0'+i%10)) + "000"}
	}
	out, err := s.clients.CreateMany(context.Background(), in)
	s.Require().NoError(err)
	return out
}

func (s *MySQLSuite) newTables(n int) []model.Table {
	min, max := model.SizeMedium.CapacityRange()
	in := make([]model.Table, n)
	for i := range in {
		in[i] = model.Table{
			Code: "GEN-4-" + string(rune('A'+i)), Size: model.SizeMedium,
			MinCapacity: min, MaxCapacity: max, Location: model.LocationGeneral,
		}
	}
	res, err := s.tables.InsertMany(context.Background(), in)
	s.Require().NoError(err)
	s.Require().Len(res.Added, n)
	return res.Added
}

// race admits every request concurrently and counts outcomes by reason.
func (s *MySQLSuite) race(reqs []admission.Request) (won int, reasons map[admission.Reason]int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	reasons = map[admission.Reason]int{}
	for _, req := range reqs {
		wg.Add(1)
		go func(req admission.Request) {
			defer wg.Done()
			_, err := s.ctrl.Admit(context.Background(), req, s.now)
			mu.Lock()
			defer mu.Unlock()
			var rej *admission.Rejection
			switch {
			case err == nil:
				won++
			case errors.As(err, &rej):
				reasons[rej.Reason]++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}(req)
	}
	wg.Wait()
	return won, reasons
}

func (s *MySQLSuite) TestConcurrentSameTable() {
	clients := s.newClients(8)
	table := s.newTables(1)[0]
	var reqs []admission.Request
	for i := range clients {
		reqs = append(reqs, admission.Request{Client: &clients[i], Table: &table, At: s.at, PartySize: 3})
	}

	won, reasons := s.race(reqs)
	s.Equal(1, won)
	s.Equal(7, reasons[admission.ReasonTableUnavailable])

	active, err := s.repo.Search(context.Background(), repository.ReservationFilter{Status: model.StatusActive})
	s.Require().NoError(err)
	s.Len(active, 1)
}

func (s *MySQLSuite) TestConcurrentSameClient() {
	client := s.newClients(1)[0]
	tables := s.newTables(6)
	var reqs []admission.Request
	for i := range tables {
		reqs = append(reqs, admission.Request{Client: &client, Table: &tables[i], At: s.at, PartySize: 4})
	}

	won, reasons := s.race(reqs)
	s.Equal(1, won)
	s.Equal(5, reasons[admission.ReasonClientHasActiveReservation])
}

func (s *MySQLSuite) TestCancelFreesTableAndClient() {
	clients := s.newClients(2)
	table := s.newTables(1)[0]
	ctx := context.Background()

	r, err := s.ctrl.Admit(ctx, admission.Request{Client: &clients[0], Table: &table, At: s.at, PartySize: 3}, s.now)
	s.Require().NoError(err)
	_, err = s.ctrl.Cancel(ctx, r, s.now)
	s.Require().NoError(err)

	_, err = s.ctrl.Admit(ctx, admission.Request{Client: &clients[1], Table: &table, At: s.at, PartySize: 3}, s.now)
	s.Require().NoError(err)
	_, err = s.ctrl.Admit(ctx, admission.Request{Client: &clients[0], Table: &table, At: s.at.AddDate(0, 0, 1), PartySize: 3}, s.now)
	s.Require().NoError(err)

	got, err := s.repo.Search(ctx, repository.ReservationFilter{Day: s.at})
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *MySQLSuite) TestUpgradePhonesFillsDigest() {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO clients (name, phone_enc) VALUES ('Old', '6440001111')`)
	s.Require().NoError(err)

	n, err := s.clients.UpgradePhones(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	n, err = s.clients.UpgradePhones(ctx)
	s.Require().NoError(err)
	s.Zero(n)

	var hash string
	s.Require().NoError(s.db.QueryRowContext(ctx, `SELECT phone_hash FROM clients WHERE name = 'Old'`).Scan(&hash))
	s.Equal("h:6440001111", hash)
}

func (s *MySQLSuite) TestSearchByPhoneUsesDigest() {
	clients := s.newClients(2)
	tables := s.newTables(2)
	ctx := context.Background()
	for i := range clients {
		_, err := s.ctrl.Admit(ctx, admission.Request{Client: &clients[i], Table: &tables[i], At: s.at, PartySize: 3}, s.now)
		s.Require().NoError(err)
	}

	got, err := s.repo.Search(ctx, repository.ReservationFilter{Phone: " " + clients[1].Phone + " ", Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(clients[1].ID, got[0].ClientID)
	s.Equal(clients[1].Phone, got[0].ClientPhone)
}

// TestLargeReportFitsRequestTimeout stores a few hundred reservations with
// the real phone cipher and builds the report under the handler deadline.
func (s *MySQLSuite) TestLargeReportFitsRequestTimeout() {
	const rows = 300
	ctx := context.Background()
	cipher, err := utils.NewPhoneCipher("report-test-secret")
	s.Require().NoError(err)
	clients := repository.NewClientRepo(s.db, cipher)
	repo := repository.NewReservationRepo(s.db, cipher, time.UTC)

	in := make([]model.Client, rows)
	for i := range in {
		in[i] = model.Client{Name: fmt.Sprintf("Guest %03d", i), Phone: fmt.Sprintf("644%07d", i)}
	}
	stored, err := clients.CreateMany(ctx, in)
	s.Require().NoError(err)
	table := s.newTables(1)[0]
	var restaurantID uint64
	s.Require().NoError(s.db.QueryRowContext(ctx, `SELECT id FROM restaurants`).Scan(&restaurantID))
	for i, c := range stored {
		at := s.at.AddDate(0, 0, i%20)
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO reservations (client_id, table_id, restaurant_id, reserved_at, reserved_day, party_size, cost_cents, status)
			 VALUES (?, ?, ?, ?, ?, 3, 50000, 'CANCELLED')`,
			c.ID, table.ID, restaurantID, at, at.Format(time.DateOnly))
		s.Require().NoError(err)
	}

	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rep, err := service.NewReportService(repo).Build(tctx, service.ReportQuery{From: s.at, To: s.at.AddDate(0, 0, 30)})
	s.Require().NoError(err)
	s.Len(rep.Reservations, rows)
	s.Equal(rows, rep.Counts[model.StatusCancelled])

	page, err := repo.Search(tctx, repository.ReservationFilter{Limit: 100})
	s.Require().NoError(err)
	s.Len(page, 100)
	s.NotEmpty(page[0].ClientPhone)
}
