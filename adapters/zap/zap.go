// Package zapadapter adapts a *zap.Logger to ratelimiter.Logger.
package zapadapter

import (
	"go.uber.org/zap"
)

// ZapLogger implements ratelimiter.Logger using a zap.SugaredLogger
// internally.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// New creates a ZapLogger from l. If l is nil, zap.NewNop() is used,
// which discards everything.
func New(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{logger: l.Sugar()}
}

// Debugf logs a debug-level message.
func (z *ZapLogger) Debugf(format string, args ...interface{}) {
	z.logger.Debugf(format, args...)
}

// Errorf logs an error-level message.
func (z *ZapLogger) Errorf(format string, args ...interface{}) {
	z.logger.Errorf(format, args...)
}
