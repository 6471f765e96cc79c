package migrations_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mwantia/ideascube/pkg/db/migrations"
	"github.com/mwantia/ideascube/pkg/db/models"
	"github.com/mwantia/ideascube/pkg/db/router"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newRouter() *router.Router {
	return router.New(router.DefaultClassification(), models.NewRegistry())
}

func TestMigrateCreatesOwnedTablesOnly(t *testing.T) {
	ctx := context.Background()
	r := newRouter()

	durable := openDB(t, "default.sqlite")
	transient := openDB(t, "transient.sqlite")

	require.NoError(t, migrations.NewMigrator(durable, router.Durable, r).Migrate(ctx))
	require.NoError(t, migrations.NewMigrator(transient, router.Transient, r).Migrate(ctx))

	for _, model := range []any{&models.Book{}, &models.BookSpecimen{}, &models.Content{}, &models.Document{}} {
		assert.True(t, durable.Migrator().HasTable(model))
		assert.False(t, transient.Migrator().HasTable(model))
	}
	assert.True(t, transient.Migrator().HasTable(&models.Search{}))
	assert.False(t, durable.Migrator().HasTable(&models.Search{}))
	assert.False(t, durable.Migrator().HasTable("idx"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "default.sqlite")
	m := migrations.NewMigrator(db, router.Durable, newRouter())

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	r := newRouter()

	transient := migrations.NewMigrator(openDB(t, "transient.sqlite"), router.Transient, r)

	statuses, err := transient.Status(ctx)
	require.NoError(t, err, "status works before the history table exists")
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Applied)
	assert.Equal(t, router.Transient, statuses[0].Backend)
	assert.Equal(t, []string{"search/search"}, statuses[0].Models)

	require.NoError(t, transient.Migrate(ctx))
	statuses, err = transient.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "default.sqlite")
	m := migrations.NewMigrator(db, router.Durable, newRouter())

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Rollback(ctx))

	assert.False(t, db.Migrator().HasTable(&models.Book{}))
	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, statuses[0].Applied)

	assert.Error(t, m.Rollback(ctx), "nothing left to roll back")
}

func TestCustomMigrations(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "default.sqlite")

	var seen [][]any
	custom := []migrations.Migration{
		{Version: 1, Description: "books", Models: []any{&models.Book{}}},
		{
			Version:     2,
			Description: "search only",
			Models:      []any{&models.Search{}},
			Up: func(tx *gorm.DB, owned []any) error {
				seen = append(seen, owned)
				return nil
			},
		},
	}

	m := migrations.NewMigrator(db, router.Durable, newRouter(), custom...)
	require.NoError(t, m.Migrate(ctx))

	assert.True(t, db.Migrator().HasTable(&models.Book{}))
	require.Len(t, seen, 1)
	assert.Empty(t, seen[0], "search is not owned by the durable backend")

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[1].Applied)
}
