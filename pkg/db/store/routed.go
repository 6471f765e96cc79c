package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/ideascube/pkg/db/migrations"
	"github.com/mwantia/ideascube/pkg/db/router"
	"github.com/mwantia/ideascube/pkg/log"
	"github.com/mwantia/ideascube/pkg/metrics"
	"gorm.io/gorm"
)

var (
	// ErrCrossBackendRelation is returned when two models living on
	// different backends would reference each other.
	ErrCrossBackendRelation = errors.New("relation crosses database backends")
	ErrUnknownBackend       = errors.New("unknown database backend")
	ErrNotFound             = errors.New("record not found")
)

// Options configures a RoutedStore
type Options struct {
	Router   *router.Router
	Backends []SQLiteConfig
	Logger   log.LoggerService
}

// RoutedStore sends every model to the database chosen by the router.
// Operations spanning two backends are independent, never atomic.
type RoutedStore struct {
	router   *router.Router
	backends map[router.Backend]*SQLiteStore
	log      log.LoggerService
}

// NewRoutedStore opens one database per configured backend. Every backend
// the router can route to must be configured.
func NewRoutedStore(opts Options) (*RoutedStore, error) {
	if opts.Router == nil {
		return nil, fmt.Errorf("router is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &RoutedStore{
		router:   opts.Router,
		backends: make(map[router.Backend]*SQLiteStore),
		log:      logger,
	}

	for _, cfg := range opts.Backends {
		if cfg.Backend == "" {
			cfg.Backend = router.Durable
		}
		if _, exists := s.backends[cfg.Backend]; exists {
			s.Close()
			return nil, fmt.Errorf("backend '%s' configured twice", cfg.Backend)
		}

		if cfg.Logger == nil {
			cfg.Logger = logger.Named("sql").Named(string(cfg.Backend))
		}

		db, err := NewSQLiteStore(cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.backends[db.Backend()] = db
	}

	for _, backend := range opts.Router.Backends() {
		if _, ok := s.backends[backend]; !ok {
			s.Close()
			return nil, fmt.Errorf("%w: '%s' has no database configured", ErrUnknownBackend, backend)
		}
	}

	return s, nil
}

// Router returns the router used for every decision of the store
func (s *RoutedStore) Router() *router.Router {
	return s.router
}

// Backend returns the database serving backend
func (s *RoutedStore) Backend(backend router.Backend) (*SQLiteStore, error) {
	db, ok := s.backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownBackend, backend)
	}
	return db, nil
}

// Backends returns the configured databases, durable first
func (s *RoutedStore) Backends() []*SQLiteStore {
	result := make([]*SQLiteStore, 0, len(s.backends))
	for _, backend := range s.router.Backends() {
		if db, ok := s.backends[backend]; ok {
			result = append(result, db)
		}
	}
	return result
}

// Reader returns a session on the backend serving reads of model
func (s *RoutedStore) Reader(ctx context.Context, model any) (*gorm.DB, error) {
	return s.session(ctx, s.router.RouteRead(model))
}

// Writer returns a session on the backend serving writes of model
func (s *RoutedStore) Writer(ctx context.Context, model any) (*gorm.DB, error) {
	return s.session(ctx, s.router.RouteWrite(model))
}

func (s *RoutedStore) session(ctx context.Context, backend router.Backend) (*gorm.DB, error) {
	db, err := s.Backend(backend)
	if err != nil {
		return nil, err
	}
	return db.DB().WithContext(ctx), nil
}

// Connect verifies every database
func (s *RoutedStore) Connect(ctx context.Context) error {
	for _, db := range s.Backends() {
		if err := db.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect backend '%s': %w", db.Backend(), err)
		}
		s.log.Debug("Connected backend '%s' at '%s'", db.Backend(), db.Path())
	}
	return nil
}

// Close closes every database
func (s *RoutedStore) Close() error {
	var errs []error
	for backend, db := range s.backends {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close backend '%s': %w", backend, err))
		}
	}
	return errors.Join(errs...)
}

// Health pings every database
func (s *RoutedStore) Health(ctx context.Context) error {
	for _, db := range s.Backends() {
		if err := db.Health(ctx); err != nil {
			return fmt.Errorf("backend '%s' is unhealthy: %w", db.Backend(), err)
		}
	}
	return nil
}

func (s *RoutedStore) migrator(backend router.Backend) (*migrations.Migrator, error) {
	db, err := s.Backend(backend)
	if err != nil {
		return nil, err
	}
	return migrations.NewMigrator(db.DB(), backend, s.router), nil
}

// Migrate runs pending migrations on every backend. Each backend only
// receives the tables routed to it.
func (s *RoutedStore) Migrate(ctx context.Context) error {
	for _, db := range s.Backends() {
		m, err := s.migrator(db.Backend())
		if err != nil {
			return err
		}

		err = m.Migrate(ctx)
		metrics.RecordDBOperation(string(db.Backend()), "migrate", err)
		if err != nil {
			return err
		}
		s.log.Info("Migrated backend '%s'", db.Backend())
	}
	return nil
}

// Rollback reverts the last migration applied on backend
func (s *RoutedStore) Rollback(ctx context.Context, backend router.Backend) error {
	m, err := s.migrator(backend)
	if err != nil {
		return err
	}

	err = m.Rollback(ctx)
	metrics.RecordDBOperation(string(backend), "rollback", err)
	return err
}

// MigrationStatus reports the migrations of every backend
func (s *RoutedStore) MigrationStatus(ctx context.Context) ([]migrations.MigrationStatus, error) {
	var result []migrations.MigrationStatus
	for _, db := range s.Backends() {
		m, err := s.migrator(db.Backend())
		if err != nil {
			return nil, err
		}

		statuses, err := m.Status(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, statuses...)
	}
	return result, nil
}

// Associate appends targets to the association field of owner. Owner and
// targets must live on the same backend.
func (s *RoutedStore) Associate(ctx context.Context, owner any, field string, targets ...any) error {
	for _, target := range targets {
		if !s.router.AllowRelation(owner, target) {
			return fmt.Errorf("%w: %s and %s", ErrCrossBackendRelation, s.router.KeyOf(owner), s.router.KeyOf(target))
		}
	}

	backend := s.router.RouteWrite(owner)
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Model(owner).Association(field).Append(targets...)
	metrics.RecordDBOperation(string(backend), "associate", err)
	if err != nil {
		return fmt.Errorf("failed to associate %s.%s: %w", s.router.KeyOf(owner), field, err)
	}
	return nil
}
