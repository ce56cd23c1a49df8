package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

var ErrReportRange = errors.New("report range end is before its start")

// ReservationSearcher is the read side the report is built from.
type ReservationSearcher interface {
	Search(ctx context.Context, f repository.ReservationFilter) ([]model.ReservationDetail, error)
}

// ReportQuery selects the reservations a report covers. From and To are
// inclusive calendar days; Location and Size are optional.
type ReportQuery struct {
	From     time.Time
	To       time.Time
	Location model.Location
	Size     model.SizeClass
}

// Report lists matching reservations with their earnings. Only ACTIVE
// reservations count toward TotalEarnedCents.
type Report struct {
	From             string                          `json:"from"`
	To               string                          `json:"to"`
	Reservations     []model.ReservationDetail       `json:"reservations"`
	TotalEarnedCents uint64                          `json:"total_earned_cents"`
	Counts           map[model.ReservationStatus]int `json:"counts"`
}

// Summarize aggregates items into a report without touching storage.
func Summarize(items []model.ReservationDetail) Report {
	rep := Report{
		Reservations: items,
		Counts:       map[model.ReservationStatus]int{model.StatusActive: 0, model.StatusCancelled: 0},
	}
	if rep.Reservations == nil {
		rep.Reservations = []model.ReservationDetail{}
	}
	for _, it := range items {
		rep.Counts[it.Status]++
		if it.Status == model.StatusActive {
			rep.TotalEarnedCents += uint64(it.CostCents)
		}
	}
	return rep
}

// ReportService builds reservation reports.
type ReportService struct {
	reservations ReservationSearcher
}

func NewReportService(reservations ReservationSearcher) *ReportService {
	return &ReportService{reservations: reservations}
}

// Build searches every reservation in q and summarizes it.
func (s *ReportService) Build(ctx context.Context, q ReportQuery) (Report, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return Report{}, ErrReportRange
	}
	// The report lists no phones and may span thousands of rows.
	items, err := s.reservations.Search(ctx, repository.ReservationFilter{
		From:       q.From,
		To:         q.To,
		Location:   q.Location,
		Size:       q.Size,
		SkipPhones: true,
	})
	if err != nil {
		return Report{}, err
	}
	rep := Summarize(items)
	if !q.From.IsZero() {
		rep.From = q.From.Format(time.DateOnly)
	}
	if !q.To.IsZero() {
		rep.To = q.To.Format(time.DateOnly)
	}
	return rep, nil
}
