package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/ideascube/pkg/db/router"
	"github.com/mwantia/ideascube/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is one physical database behind the router
type SQLiteStore struct {
	db      *gorm.DB
	path    string
	backend router.Backend
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// Path returns the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

// Backend returns the backend id this database serves
func (s *SQLiteStore) Backend() router.Backend {
	return s.backend
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Backend      router.Backend
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
	// Logger receives the SQL log when set, else gorm's default logger is used.
	Logger log.LoggerService
}

// NewSQLiteStore opens the database file, creating its directory
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if cfg.Backend == "" {
		cfg.Backend = router.Durable
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	var sqlLogger logger.Interface = logger.Default.LogMode(cfg.LogLevel)
	if cfg.Logger != nil {
		sqlLogger = log.NewGormLogger(cfg.Logger, cfg.LogLevel)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: sqlLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &SQLiteStore{
		db:      db,
		path:    cfg.Path,
		backend: cfg.Backend,
	}, nil
}

// Connect verifies the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	return s.Health(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
