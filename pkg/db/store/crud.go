package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/ideascube/pkg/metrics"
	"gorm.io/gorm"
)

// ListOptions pages List results
type ListOptions struct {
	Limit  int
	Offset int
	Order  string
}

// Create inserts model on its write backend, then indexes it when it is
// searchable. An indexing failure does not undo the insert.
func Create[T any](ctx context.Context, s *RoutedStore, model *T) error {
	backend := s.router.RouteWrite(model)
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Create(model).Error
	metrics.RecordDBOperation(string(backend), "create", err)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.router.KeyOf(model), err)
	}

	return s.index(ctx, model)
}

// Get loads the row of T with primary key id from its read backend
func Get[T any](ctx context.Context, s *RoutedStore, id any) (*T, error) {
	model := new(T)
	backend := s.router.RouteRead(model)
	db, err := s.session(ctx, backend)
	if err != nil {
		return nil, err
	}

	err = db.First(model, id).Error
	metrics.RecordDBOperation(string(backend), "get", err)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, s.router.KeyOf(model), id)
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

// List returns the rows of T from its read backend
func List[T any](ctx context.Context, s *RoutedStore, opts ListOptions) ([]T, error) {
	var result []T
	backend := s.router.RouteRead(&result)
	db, err := s.session(ctx, backend)
	if err != nil {
		return nil, err
	}

	query := db
	if opts.Order != "" {
		query = query.Order(opts.Order)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err = query.Find(&result).Error
	metrics.RecordDBOperation(string(backend), "list", err)
	return result, err
}

// Update saves model on its write backend and refreshes its index row
func Update[T any](ctx context.Context, s *RoutedStore, model *T) error {
	backend := s.router.RouteWrite(model)
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Save(model).Error
	metrics.RecordDBOperation(string(backend), "update", err)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", s.router.KeyOf(model), err)
	}

	return s.index(ctx, model)
}

// Delete removes the index row of model, then model itself
func Delete[T any](ctx context.Context, s *RoutedStore, model *T) error {
	if err := s.deindex(ctx, model); err != nil {
		return err
	}

	backend := s.router.RouteWrite(model)
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Delete(model).Error
	metrics.RecordDBOperation(string(backend), "delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.router.KeyOf(model), err)
	}
	return nil
}
