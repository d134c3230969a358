package orm

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger implements Logger by writing each statement to a zap.Logger at
// debug level.
type ZapLogger struct {
	Logger *zap.Logger
}

// NewZapLogger returns a Logger backed by l.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{Logger: l}
}

var _ Logger = (*ZapLogger)(nil)

func (l *ZapLogger) Log(_ context.Context, query string, args ...any) {
	l.Logger.Debug("orm: query",
		zap.String("sql", query),
		zap.Any("args", args),
	)
}
