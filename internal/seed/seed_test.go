package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

type recorder struct {
	restaurant *model.Restaurant
	batches    []string
	clients    []model.Client
	failTables error
}

func (r *recorder) Save(_ context.Context, rest model.Restaurant) (*model.Restaurant, error) {
	rest.ID = 1
	r.restaurant = &rest
	return &rest, nil
}

func (r *recorder) BulkCreate(_ context.Context, size model.SizeClass, loc model.Location, n int) (repository.BulkResult, error) {
	if r.failTables != nil {
		return repository.BulkResult{}, r.failTables
	}
	r.batches = append(r.batches, string(size)+"/"+string(loc))
	res := repository.BulkResult{Skipped: []string{}}
	for i := 0; i < n; i++ {
		res.Added = append(res.Added, model.Table{Size: size, Location: loc})
	}
	return res, nil
}

func (r *recorder) CreateMany(_ context.Context, clients []model.Client) ([]model.Client, error) {
	r.clients = append(r.clients, clients...)
	return clients, nil
}

func (r *recorder) targets() Targets {
	return Targets{Restaurants: r, Tables: r, Clients: r}
}

func TestDefaultApplies(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	rec := &recorder{}
	sum, err := Apply(context.Background(), d, rec.targets())
	require.NoError(t, err)

	require.NotNil(t, rec.restaurant)
	assert.Equal(t, "Casa Olivo", rec.restaurant.Name)
	assert.Equal(t, model.NewTimeOfDay(9, 0, 0), rec.restaurant.Opens)
	assert.Equal(t, model.NewTimeOfDay(22, 0, 0), rec.restaurant.Closes)
	assert.Equal(t, 15, sum.TablesAdded)
	assert.Equal(t, 0, sum.TablesSkipped)
	assert.Equal(t, 3, sum.Clients)
	assert.Len(t, rec.batches, 5)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(strings.NewReader("restaurant:\n  name: X\n  seats: 4\n"))
	require.Error(t, err)
}

func TestApplyValidatesBeforeWriting(t *testing.T) {
	cases := map[string]string{
		"bad hours": `
restaurant: {name: X, opens: "22:00", closes: "09:00"}
`,
		"missing name": `
restaurant: {opens: "09:00", closes: "22:00"}
`,
		"bad size": `
restaurant: {name: X, opens: "09:00", closes: "22:00"}
tables: [{size: HUGE, location: WINDOW, count: 1}]
`,
		"bad location": `
restaurant: {name: X, opens: "09:00", closes: "22:00"}
tables: [{size: SMALL, location: ROOF, count: 1}]
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := Load(strings.NewReader(doc))
			require.NoError(t, err)
			rec := &recorder{}
			_, err = Apply(context.Background(), d, rec.targets())
			require.Error(t, err)
			assert.Nil(t, rec.restaurant)
			assert.Empty(t, rec.batches)
		})
	}
}

func TestApplyStopsOnTableError(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	boom := errors.New("boom")
	rec := &recorder{failTables: boom}

	_, err = Apply(context.Background(), d, rec.targets())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, rec.clients)
}
