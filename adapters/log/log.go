// Package stdlogadapter adapts the standard library's log.Logger to
// ratelimiter.Logger.
package stdlogadapter

import (
	"log"
)

// StdLogger implements ratelimiter.Logger using the standard library's
// log package.
type StdLogger struct {
	logger *log.Logger
}

// New creates a StdLogger. If l is nil, log.Default() is used.
func New(l *log.Logger) *StdLogger {
	if l == nil {
		l = log.Default()
	}
	return &StdLogger{logger: l}
}

// Debugf logs a debug-level message.
func (s *StdLogger) Debugf(format string, args ...interface{}) {
	s.logger.Printf("[DEBUG] "+format, args...)
}

// Errorf logs an error-level message.
func (s *StdLogger) Errorf(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}
