package log

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQuery is the duration above which a query is logged as a warning.
const slowQuery = 200 * time.Millisecond

// GormLogger forwards gorm's SQL log to a LoggerService. Every SQL line is
// emitted at Debug so the service level still applies on top of the gorm one.
type GormLogger struct {
	log   LoggerService
	level gormlogger.LogLevel
}

func NewGormLogger(l LoggerService, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		log:   l,
		level: level,
	}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{
		log:   g.log,
		level: level,
	}
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.log.Info(msg, args...)
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(msg, args...)
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.log.Error(msg, args...)
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		g.log.Error("%s [%s, %d rows]: %v", sql, elapsed, rows, err)
	case elapsed > slowQuery && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn("Slow query %s [%s, %d rows]", sql, elapsed, rows)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug("%s [%s, %d rows]", sql, elapsed, rows)
	}
}
