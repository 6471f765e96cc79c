package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type BaseServerConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"duration"`

	Storage  StorageServerConfig  `mapstructure:"storage"  yaml:"storage"`
	Backup   BackupServerConfig   `mapstructure:"backup"   yaml:"backup"`
	Database DatabaseServerConfig `mapstructure:"database" yaml:"database"`
	HTTP     HTTPServerConfig     `mapstructure:"http"     yaml:"http"`
	Log      LogServerConfig      `mapstructure:"log"      yaml:"log"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
			value := fl.Field().String()
			if value == "" {
				return true
			}
			_, err := time.ParseDuration(value)
			return err == nil
		})
		validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
			return isLogLevel(fl.Field().String())
		})
	})
	return validate
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// Resolve fills every derived setting left empty and validates the result.
// version is used when no backup version is configured.
func (c *BaseServerConfig) Resolve(version string) error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	c.Storage.Root = filepath.Clean(c.Storage.Root)

	if c.Storage.DataRoot == "" {
		c.Storage.DataRoot = filepath.Join(c.Storage.Root, "main")
	}
	if c.Backup.Root == "" {
		c.Backup.Root = filepath.Join(c.Storage.Root, "backups")
	}
	if c.Database.DurablePath == "" {
		c.Database.DurablePath = filepath.Join(c.Storage.DataRoot, "default.sqlite")
	}
	if c.Database.TransientPath == "" {
		c.Database.TransientPath = filepath.Join(c.Storage.Root, "transient.sqlite")
	}

	c.Log.resolve(c.Storage.Root)

	if c.Backup.SourceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to resolve hostname for backup.source_id: %w", err)
		}
		c.Backup.SourceID = strings.ReplaceAll(hostname, "_", "-")
	}
	if c.Backup.Version == "" {
		c.Backup.Version = strings.ReplaceAll(version, "_", "-")
	}

	return c.Validate()
}

// Validate checks the configuration without filling any default.
func (c *BaseServerConfig) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if within(c.Database.TransientPath, c.Storage.DataRoot) {
		return fmt.Errorf("invalid configuration: database.transient_path '%s' must be outside of storage.data_root", c.Database.TransientPath)
	}
	return nil
}

// ShutdownDuration parses ShutdownTimeout, falling back to ten seconds.
func (c *BaseServerConfig) ShutdownDuration() time.Duration {
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
