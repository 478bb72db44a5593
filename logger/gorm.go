package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger routes gorm's statement trace into the ctx logger, so each line
// carries the request id of the call that issued it. Row-locking statements
// are tagged with their lock strength and postgres errors with their SQLSTATE.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

// NewGormLogger returns a logger at warn level. A zero slow threshold uses
// the default.
func NewGormLogger(slow time.Duration) *GormLogger {
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &GormLogger{SlowThreshold: slow, LogLevel: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	n := *l
	n.LogLevel = level
	return &n
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		Info(ctx).Msgf(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		Warn(ctx).Msgf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		Error(ctx).Msgf(msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.SlowThreshold > 0 && elapsed > l.SlowThreshold

	var event *zerolog.Event
	msg := "sql"
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= gormlogger.Error:
		if errors.Is(err, context.Canceled) {
			event, msg = Warn(ctx).Err(err), "sql canceled"
			break
		}
		event, msg = Error(ctx).Err(err), "sql failed"
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			event = event.Str("sqlstate", pgErr.Code)
			if lockFailure(pgErr.Code) {
				msg = "sql lock failure"
			}
		}
	case slow && l.LogLevel >= gormlogger.Warn:
		event, msg = Warn(ctx), "slow sql"
	case l.LogLevel >= gormlogger.Info:
		event = Debug(ctx)
	}
	if event == nil {
		return
	}

	sql, rows := fc()
	if mode := lockMode(sql); mode != "" {
		event = event.Str("row_lock", mode)
	}
	event.
		Str("sql", sql).
		Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1e6).
		Int64("rows", rows).
		Msg(msg)
}

// lockFailure is true for deadlock, serialization and lock timeout codes.
func lockFailure(code string) bool {
	switch code {
	case "40P01", "40001", "55P03":
		return true
	}
	return false
}

// lockMode returns the row lock strength of a SELECT ... FOR statement.
func lockMode(sql string) string {
	upper := strings.ToUpper(sql)
	for _, m := range []string{"FOR NO KEY UPDATE", "FOR KEY SHARE", "FOR UPDATE", "FOR SHARE"} {
		if strings.Contains(upper, m) {
			return strings.ToLower(strings.TrimPrefix(m, "FOR "))
		}
	}
	return ""
}
