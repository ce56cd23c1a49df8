package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// MaxBatchTables caps a single bulk creation.
const MaxBatchTables = 100

var ErrBatchSize = fmt.Errorf("table count must be between 1 and %d", MaxBatchTables)

// TableWriter is the part of the table repository bulk creation needs.
type TableWriter interface {
	NextSequence(ctx context.Context, prefix string) (int, error)
	InsertMany(ctx context.Context, tables []model.Table) (repository.BulkResult, error)
}

// TableService creates dining tables in batches.
type TableService struct {
	tables TableWriter
}

func NewTableService(tables TableWriter) *TableService {
	return &TableService{tables: tables}
}

// CodePrefix is the shared prefix of generated codes for size at loc, for
// example "TER-4-" for medium terrace tables.
func CodePrefix(size model.SizeClass, loc model.Location) string {
	_, max := size.CapacityRange()
	return fmt.Sprintf("%s-%d-", loc.CodePrefix(), max)
}

// PlanTables builds n tables of size at loc, numbering codes from start.
func PlanTables(size model.SizeClass, loc model.Location, start, n int) []model.Table {
	min, max := size.CapacityRange()
	prefix := CodePrefix(size, loc)
	out := make([]model.Table, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Table{
			Code:        fmt.Sprintf("%s%03d", prefix, start+i),
			Size:        size,
			MinCapacity: min,
			MaxCapacity: max,
			Location:    loc,
		})
	}
	return out
}

// BulkCreate adds n tables of size at loc, continuing the code sequence
// after the highest existing one. Codes that already exist are skipped.
func (s *TableService) BulkCreate(ctx context.Context, size model.SizeClass, loc model.Location, n int) (repository.BulkResult, error) {
	if n < 1 || n > MaxBatchTables {
		return repository.BulkResult{}, ErrBatchSize
	}
	if _, err := model.ParseSizeClass(string(size)); err != nil {
		return repository.BulkResult{}, err
	}
	if _, err := model.ParseLocation(string(loc)); err != nil {
		return repository.BulkResult{}, err
	}
	next, err := s.tables.NextSequence(ctx, CodePrefix(size, loc))
	if err != nil {
		return repository.BulkResult{}, fmt.Errorf("next table sequence: %w", err)
	}
	res, err := s.tables.InsertMany(ctx, PlanTables(size, loc, next, n))
	if err != nil {
		return repository.BulkResult{}, fmt.Errorf("insert tables: %w", err)
	}
	return res, nil
}

// IsBatchError reports whether err came from request validation rather
// than storage.
func IsBatchError(err error) bool {
	return errors.Is(err, ErrBatchSize) || errors.Is(err, model.ErrUnknownEnum)
}
