package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// GormLogger routes gorm's statement log into zap, tagged with the request id
// carried by ctx.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
}

func NewGormLogger(log *zap.Logger, level string) *GormLogger {
	l := &GormLogger{log: log.Named("gorm"), level: gormlogger.Warn}
	switch strings.ToLower(level) {
	case "silent":
		l.level = gormlogger.Silent
	case "error":
		l.level = gormlogger.Error
	case "info":
		l.level = gormlogger.Info
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{log: l.log, level: level}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, at gormlogger.LogLevel, msg string, data []any) {
	if l.level < at {
		return
	}
	s := l.log.Sugar()
	if rid := RequestID(ctx); rid != "" {
		s = s.With("request_id", rid)
	}
	switch at {
	case gormlogger.Error:
		s.Errorf(msg, data...)
	case gormlogger.Warn:
		s.Warnf(msg, data...)
	default:
		s.Infof(msg, data...)
	}
}

// Trace logs failed statements, slow statements, and at info level every
// statement. Record-not-found is an expected outcome and is not logged.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	log := l.log.With(zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	if rid := RequestID(ctx); rid != "" {
		log = log.With(zap.String("request_id", rid))
	}

	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	switch {
	case failed && l.level >= gormlogger.Error:
		log.Error("sql error", zap.Error(err))
	case elapsed > slowQuery && l.level >= gormlogger.Warn:
		log.Warn("slow sql", zap.Duration("threshold", slowQuery))
	case l.level >= gormlogger.Info:
		log.Debug("sql")
	}
}
