// Package seed loads a YAML description of the restaurant, its tables and a
// few clients into the repositories.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

//go:embed default.yaml
var defaultData []byte

// Data is the document shape. Hours are "HH:MM" strings.
type Data struct {
	Restaurant struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
		Phone   string `yaml:"phone"`
		Opens   string `yaml:"opens"`
		Closes  string `yaml:"closes"`
	} `yaml:"restaurant"`
	Tables []struct {
		Size     string `yaml:"size"`
		Location string `yaml:"location"`
		Count    int    `yaml:"count"`
	} `yaml:"tables"`
	Clients []struct {
		Name  string `yaml:"name"`
		Phone string `yaml:"phone"`
	} `yaml:"clients"`
}

// Default returns the embedded development data.
func Default() (*Data, error) {
	return Load(bytes.NewReader(defaultData))
}

// Load decodes a document, rejecting unknown keys.
func Load(r io.Reader) (*Data, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}
	return &d, nil
}

// RestaurantSaver stores the restaurant profile.
type RestaurantSaver interface {
	Save(ctx context.Context, r model.Restaurant) (*model.Restaurant, error)
}

// TableCreator adds numbered tables.
type TableCreator interface {
	BulkCreate(ctx context.Context, size model.SizeClass, loc model.Location, n int) (repository.BulkResult, error)
}

// ClientCreator stores clients atomically.
type ClientCreator interface {
	CreateMany(ctx context.Context, clients []model.Client) ([]model.Client, error)
}

// Targets are the stores Apply writes to.
type Targets struct {
	Restaurants RestaurantSaver
	Tables      TableCreator
	Clients     ClientCreator
}

// Summary counts what Apply stored.
type Summary struct {
	TablesAdded   int
	TablesSkipped int
	Clients       int
}

// restaurant converts the restaurant section into a model value.
func (d *Data) restaurant() (model.Restaurant, error) {
	rd := d.Restaurant
	opens, err := model.ParseTimeOfDay(rd.Opens)
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("restaurant.opens: %w", err)
	}
	closes, err := model.ParseTimeOfDay(rd.Closes)
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("restaurant.closes: %w", err)
	}
	r := model.Restaurant{
		Name:    strings.TrimSpace(rd.Name),
		Address: strings.TrimSpace(rd.Address),
		Phone:   strings.TrimSpace(rd.Phone),
		Opens:   opens,
		Closes:  closes,
	}
	if r.Name == "" {
		return model.Restaurant{}, errors.New("restaurant.name is required")
	}
	return r, r.Validate()
}

// Apply validates the whole document before writing anything, then saves the
// restaurant, creates the tables and finally the clients. Re-running it
// continues table numbering and adds the clients again.
func Apply(ctx context.Context, d *Data, t Targets) (Summary, error) {
	var sum Summary
	rest, err := d.restaurant()
	if err != nil {
		return sum, err
	}
	type batch struct {
		size model.SizeClass
		loc  model.Location
		n    int
	}
	batches := make([]batch, 0, len(d.Tables))
	for i, tb := range d.Tables {
		size, err := model.ParseSizeClass(tb.Size)
		if err != nil {
			return sum, fmt.Errorf("tables[%d]: %w", i, err)
		}
		loc, err := model.ParseLocation(tb.Location)
		if err != nil {
			return sum, fmt.Errorf("tables[%d]: %w", i, err)
		}
		batches = append(batches, batch{size, loc, tb.Count})
	}
	clients := make([]model.Client, 0, len(d.Clients))
	for _, c := range d.Clients {
		clients = append(clients, model.Client{Name: c.Name, Phone: c.Phone})
	}

	if _, err := t.Restaurants.Save(ctx, rest); err != nil {
		return sum, fmt.Errorf("saving restaurant: %w", err)
	}
	for i, b := range batches {
		res, err := t.Tables.BulkCreate(ctx, b.size, b.loc, b.n)
		if err != nil {
			return sum, fmt.Errorf("tables[%d]: %w", i, err)
		}
		sum.TablesAdded += len(res.Added)
		sum.TablesSkipped += len(res.Skipped)
	}
	if len(clients) > 0 {
		out, err := t.Clients.CreateMany(ctx, clients)
		if err != nil {
			return sum, fmt.Errorf("creating clients: %w", err)
		}
		sum.Clients = len(out)
	}
	return sum, nil
}
