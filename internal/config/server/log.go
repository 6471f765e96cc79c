package server

import (
	"path/filepath"
	"strings"
)

// LogServerConfig configures the logger service. A relative File is
// resolved against storage.root.
type LogServerConfig struct {
	Level      string                  `mapstructure:"level"       yaml:"level"       validate:"loglevel"`
	TimeFormat string                  `mapstructure:"time_format" yaml:"time_format"`
	File       string                  `mapstructure:"file"        yaml:"file"`
	NoColor    bool                    `mapstructure:"no_color"    yaml:"no_color"`
	JSON       bool                    `mapstructure:"json"        yaml:"json"`
	NoTerminal bool                    `mapstructure:"no_terminal" yaml:"no_terminal"`
	Rotation   LogServerRotationConfig `mapstructure:"rotation"    yaml:"rotation"`
}

// LogServerRotationConfig is passed to lumberjack. Sizes are in megabytes
// and ages in days; zero keeps lumberjack's default.
type LogServerRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"    yaml:"max_size"    validate:"gte=0"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAge     int  `mapstructure:"max_age"     yaml:"max_age"     validate:"gte=0"`
	Compress   bool `mapstructure:"compress"    yaml:"compress"`
}

var logLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL"}

func isLogLevel(value string) bool {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return true
	}
	for _, level := range logLevels {
		if value == level {
			return true
		}
	}
	return false
}

func (c *LogServerConfig) resolve(root string) {
	if c.File != "" && !filepath.IsAbs(c.File) {
		c.File = filepath.Join(root, c.File)
	}
}
