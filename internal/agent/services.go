package agent

import (
	"context"
	"fmt"

	config "github.com/mwantia/ideascube/internal/config/server"
	"github.com/mwantia/ideascube/pkg/backup"
	"github.com/mwantia/ideascube/pkg/db/models"
	"github.com/mwantia/ideascube/pkg/db/router"
	"github.com/mwantia/ideascube/pkg/db/store"
	"github.com/mwantia/ideascube/pkg/log"
	"github.com/mwantia/ideascube/pkg/metrics"
)

// OpenStore opens and migrates both databases described by cfg.
func OpenStore(ctx context.Context, cfg *config.BaseServerConfig, logger log.LoggerService) (*store.RoutedStore, error) {
	r := router.New(cfg.Database.Classification(), models.NewRegistry())

	var backends []store.SQLiteConfig
	for _, backend := range r.Backends() {
		path := cfg.Database.DurablePath
		if backend != router.Durable {
			path = cfg.Database.TransientPath
		}

		backends = append(backends, store.SQLiteConfig{
			Backend:      backend,
			Path:         path,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			LogLevel:     cfg.Database.GormLogLevel(),
		})
	}

	s, err := store.NewRoutedStore(store.Options{
		Router:   r,
		Backends: backends,
		Logger:   logger.Named("store"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open databases: %w", err)
	}

	if err := s.Connect(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenRepository builds the backup repository described by cfg.
func OpenRepository(cfg *config.BaseServerConfig, logger log.LoggerService) (*backup.Repository, error) {
	format, err := backup.ParseFormat(cfg.Backup.Format)
	if err != nil {
		return nil, err
	}

	return backup.NewRepository(backup.Options{
		Root:     cfg.Backup.Root,
		DataRoot: cfg.Storage.DataRoot,
		SourceID: cfg.Backup.SourceID,
		Version:  cfg.Backup.Version,
		Format:   format,
		Logger:   logger.Named("backup"),
		Observer: metrics.BackupObserver{},
	})
}
