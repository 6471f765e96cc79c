package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/ideascube/pkg/db/models"
	"github.com/mwantia/ideascube/pkg/db/router"
	"gorm.io/gorm"
)

// Migration represents a database migration. Up and Down receive the subset
// of Models owned by the backend being migrated, which may be empty.
type Migration struct {
	Version     int
	Description string
	Models      []any
	Up          func(tx *gorm.DB, models []any) error
	Down        func(tx *gorm.DB, models []any) error
}

// migrationHistory tracks applied migrations
type migrationHistory struct {
	ID          uint   `gorm:"primaryKey"`
	Version     int    `gorm:"uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	AppliedAt   int64  `gorm:"autoCreateTime"`
}

// Migrator handles the migrations of one backend
type Migrator struct {
	db         *gorm.DB
	backend    router.Backend
	router     *router.Router
	migrations []Migration
}

// NewMigrator creates a migrator for backend. Without explicit migrations the
// schema of all persistent models is used.
func NewMigrator(db *gorm.DB, backend router.Backend, r *router.Router, migrations ...Migration) *Migrator {
	if len(migrations) == 0 {
		migrations = allMigrations()
	}

	return &Migrator{
		db:         db,
		backend:    backend,
		router:     r,
		migrations: migrations,
	}
}

// Backend returns the backend this migrator applies to
func (m *Migrator) Backend() router.Backend {
	return m.backend
}

// owned filters models down to the ones routed to this backend
func (m *Migrator) owned(migration Migration) []any {
	var owned []any
	for _, model := range migration.Models {
		if m.router.AllowMigrateModel(m.backend, model) {
			owned = append(owned, model)
		}
	}
	return owned
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate(ctx context.Context) error {
	// Ensure migration history table exists
	if err := m.db.WithContext(ctx).AutoMigrate(&migrationHistory{}); err != nil {
		return fmt.Errorf("failed to create migration history table: %w", err)
	}

	appliedVersions, err := m.applied(ctx)
	if err != nil {
		return err
	}

	// Run pending migrations
	for _, migration := range m.migrations {
		if appliedVersions[migration.Version] {
			continue
		}

		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %d (%s) failed on '%s': %w", migration.Version, migration.Description, m.backend, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration
func (m *Migrator) Rollback(ctx context.Context) error {
	// Get last applied migration
	var last migrationHistory
	if err := m.db.WithContext(ctx).Order("version DESC").First(&last).Error; err != nil {
		return fmt.Errorf("no migrations to rollback on '%s': %w", m.backend, err)
	}

	// Find migration
	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last.Version {
			migration = &m.migrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %d not found", last.Version)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := down(*migration)(tx, m.owned(*migration)); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		if err := tx.Delete(&last).Error; err != nil {
			return fmt.Errorf("failed to update migration history: %w", err)
		}
		return nil
	})
}

// Status returns migration status
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	appliedVersions := map[int]bool{}
	if m.db.WithContext(ctx).Migrator().HasTable(&migrationHistory{}) {
		var err error
		if appliedVersions, err = m.applied(ctx); err != nil {
			return nil, err
		}
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, migration := range m.migrations {
		var keys []string
		for _, model := range m.owned(migration) {
			keys = append(keys, m.router.KeyOf(model).String())
		}

		statuses = append(statuses, MigrationStatus{
			Backend:     m.backend,
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     appliedVersions[migration.Version],
			Models:      keys,
		})
	}

	return statuses, nil
}

// MigrationStatus represents the status of a migration on one backend
type MigrationStatus struct {
	Backend     router.Backend `json:"backend" yaml:"backend"`
	Version     int            `json:"version" yaml:"version"`
	Description string         `json:"description" yaml:"description"`
	Applied     bool           `json:"applied" yaml:"applied"`
	Models      []string       `json:"models" yaml:"models"`
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	var applied []migrationHistory
	if err := m.db.WithContext(ctx).Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, a := range applied {
		appliedVersions[a.Version] = true
	}
	return appliedVersions, nil
}

func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Run migration
		if err := up(migration)(tx, m.owned(migration)); err != nil {
			return err
		}

		// Record in history
		history := migrationHistory{
			Version:     migration.Version,
			Description: migration.Description,
		}
		return tx.Create(&history).Error
	})
}

func up(migration Migration) func(*gorm.DB, []any) error {
	if migration.Up != nil {
		return migration.Up
	}
	return func(tx *gorm.DB, models []any) error {
		if len(models) == 0 {
			return nil
		}
		return tx.AutoMigrate(models...)
	}
}

func down(migration Migration) func(*gorm.DB, []any) error {
	if migration.Down != nil {
		return migration.Down
	}
	return func(tx *gorm.DB, models []any) error {
		var errs []error
		for i := len(models) - 1; i >= 0; i-- {
			errs = append(errs, tx.Migrator().DropTable(models[i]))
		}
		return errors.Join(errs...)
	}
}

// allMigrations returns all migrations in order
func allMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Initial schema creation",
			Models: []any{
				&models.Book{},
				&models.BookSpecimen{},
				&models.Content{},
				&models.Document{},
				&models.Search{},
			},
		},
	}
}
