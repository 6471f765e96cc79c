package server

import (
	"github.com/mwantia/ideascube/pkg/db/router"
	"gorm.io/gorm/logger"
)

// DatabaseServerConfig holds the durable and transient database settings
type DatabaseServerConfig struct {
	DurablePath   string                `mapstructure:"durable_path"   yaml:"durable_path"   validate:"required"`
	TransientPath string                `mapstructure:"transient_path" yaml:"transient_path" validate:"required"`
	MaxOpenConns  int                   `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=1"`
	LogLevel      string                `mapstructure:"log_level"      yaml:"log_level"      validate:"oneof=silent error warn info"`
	Routes        []DatabaseRouteConfig `mapstructure:"routes"         yaml:"routes"         validate:"dive"`
}

// DatabaseRouteConfig sends one model to a backend other than the default
type DatabaseRouteConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace" validate:"required"`
	Name      string `mapstructure:"name"      yaml:"name"      validate:"required"`
	Backend   string `mapstructure:"backend"   yaml:"backend"   validate:"required,oneof=default transient"`
}

// Classification builds the immutable routing table of the configured routes
func (c DatabaseServerConfig) Classification() router.Classification {
	classification := router.Classification{}
	for _, route := range c.Routes {
		classification[router.Key{Namespace: route.Namespace, Name: route.Name}] = router.Backend(route.Backend)
	}
	return classification
}

// GormLogLevel maps LogLevel to the gorm logger level, silent by default
func (c DatabaseServerConfig) GormLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
