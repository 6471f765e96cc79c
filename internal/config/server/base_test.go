package server

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mwantia/ideascube/pkg/db/router"
)

func resolvedDefault(t *testing.T, root string) BaseServerConfig {
	t.Helper()

	cfg := GetServerDefault()
	cfg.Storage.Root = root
	cfg.Backup.SourceID = "musasa"
	require.NoError(t, cfg.Resolve("0.1.0"))
	return cfg
}

func TestResolveDerivesPaths(t *testing.T) {
	root := t.TempDir()
	cfg := resolvedDefault(t, root)

	assert.Equal(t, filepath.Join(root, "main"), cfg.Storage.DataRoot)
	assert.Equal(t, filepath.Join(root, "backups"), cfg.Backup.Root)
	assert.Equal(t, filepath.Join(root, "main", "default.sqlite"), cfg.Database.DurablePath)
	assert.Equal(t, filepath.Join(root, "transient.sqlite"), cfg.Database.TransientPath)
	assert.Equal(t, "0.1.0", cfg.Backup.Version)
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	cfg := GetServerDefault()
	cfg.Storage.Root = "/srv/ideascube"
	cfg.Storage.DataRoot = "/data/main"
	cfg.Backup.Root = "/mnt/usb/backups"
	cfg.Backup.SourceID = "kb-bsf"
	cfg.Backup.Version = "1.2.0"

	require.NoError(t, cfg.Resolve("dev"))
	assert.Equal(t, "/data/main", cfg.Storage.DataRoot)
	assert.Equal(t, "/mnt/usb/backups", cfg.Backup.Root)
	assert.Equal(t, "/data/main/default.sqlite", cfg.Database.DurablePath)
	assert.Equal(t, "1.2.0", cfg.Backup.Version)
}

func TestResolveHostnameSourceID(t *testing.T) {
	cfg := GetServerDefault()
	cfg.Storage.Root = t.TempDir()

	require.NoError(t, cfg.Resolve("my_build"))
	assert.NotEmpty(t, cfg.Backup.SourceID)
	assert.NotContains(t, cfg.Backup.SourceID, "_")
	assert.Equal(t, "my-build", cfg.Backup.Version)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *BaseServerConfig)
	}{
		{"underscore source id", func(cfg *BaseServerConfig) { cfg.Backup.SourceID = "my_box" }},
		{"unknown format", func(cfg *BaseServerConfig) { cfg.Backup.Format = "rar" }},
		{"unknown backend", func(cfg *BaseServerConfig) {
			cfg.Database.Routes = append(cfg.Database.Routes, DatabaseRouteConfig{Namespace: "blog", Name: "content", Backend: "memory"})
		}},
		{"bad shutdown timeout", func(cfg *BaseServerConfig) { cfg.ShutdownTimeout = "soon" }},
		{"bad address", func(cfg *BaseServerConfig) { cfg.HTTP.Address = "localhost" }},
		{"unknown log level", func(cfg *BaseServerConfig) { cfg.Log.Level = "LOUD" }},
		{"negative rotation", func(cfg *BaseServerConfig) { cfg.Log.Rotation.MaxBackups = -1 }},
		{"transient inside data root", func(cfg *BaseServerConfig) {
			cfg.Database.TransientPath = filepath.Join(cfg.Storage.DataRoot, "transient.sqlite")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := resolvedDefault(t, t.TempDir())
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveLogFile(t *testing.T) {
	root := t.TempDir()

	cfg := GetServerDefault()
	cfg.Storage.Root = root
	cfg.Backup.SourceID = "musasa"
	cfg.Log.File = "logs/ideascube.log"
	cfg.Log.Level = "debug"
	require.NoError(t, cfg.Resolve("0.1.0"))
	assert.Equal(t, filepath.Join(root, "logs", "ideascube.log"), cfg.Log.File)

	cfg.Log.File = "/var/log/ideascube.log"
	require.NoError(t, cfg.Resolve("0.1.0"))
	assert.Equal(t, "/var/log/ideascube.log", cfg.Log.File)
}

func TestResolveRequiresStorageRoot(t *testing.T) {
	cfg := GetServerDefault()
	cfg.Storage.Root = ""
	assert.Error(t, cfg.Resolve("0.1.0"))
}

func TestClassification(t *testing.T) {
	cfg := GetServerDefault().Database

	classification := cfg.Classification()
	assert.Equal(t, router.Classification{{Namespace: "search", Name: "search"}: router.Transient}, classification)

	cfg.Routes = nil
	assert.Empty(t, cfg.Classification())
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, DatabaseServerConfig{}.GormLogLevel())
	assert.Equal(t, logger.Warn, DatabaseServerConfig{LogLevel: "warn"}.GormLogLevel())
}

func TestShutdownDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, (&BaseServerConfig{}).ShutdownDuration())
	assert.Equal(t, 3*time.Second, (&BaseServerConfig{ShutdownTimeout: "3s"}).ShutdownDuration())
}

func TestLoadServerConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(`
storage:
  root: /srv/ideascube
backup:
  format: gztar
database:
  routes:
    - namespace: search
      name: search
      backend: transient
    - namespace: blog
      name: content
      backend: transient
`)))

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/ideascube", cfg.Storage.Root)
	assert.Equal(t, "gztar", cfg.Backup.Format)
	assert.Equal(t, "10s", cfg.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Address)
	assert.Len(t, cfg.Database.Routes, 2)
	assert.Equal(t, router.Transient, cfg.Database.Classification()[router.Key{Namespace: "blog", Name: "content"}])
}
