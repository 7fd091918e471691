// Package logrusadapter adapts a *logrus.Logger to ratelimiter.Logger.
package logrusadapter

import (
	"github.com/sirupsen/logrus"
)

// LogrusLogger implements ratelimiter.Logger using logrus.
type LogrusLogger struct {
	logger *logrus.Entry
}

// New creates a LogrusLogger. If l is nil, a fresh logrus.New() is
// used.
func New(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.New()
	}
	return &LogrusLogger{logger: logrus.NewEntry(l)}
}

// Debugf logs a debug-level message.
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Errorf logs an error-level message.
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
