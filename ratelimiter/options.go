package ratelimiter

import (
	"net/http"
	"strings"
	"time"
)

// Logger is a simple interface for logging. Users can provide their own
// logger that implements this interface; adapters for the standard log
// package, logrus, zap, and zerolog live in sibling adapters/ packages.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is the default Logger, used when none is configured, to
// avoid nil panics at the call sites.
type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// KeyFunc extracts a client key from an incoming HTTP request.
type KeyFunc func(r *http.Request) (string, error)

// ErrorHandler writes the rejection response for a request that Check
// denied. It is given full control over status code, headers, and body.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, decision Decision)

// Config is the immutable, per-limiter-instance configuration described by
// the data model: a window and a request cap shared by every algorithm,
// the algorithm-specific fields each of the five procedures reads, and the
// presentation options the middleware applies.
type Config struct {
	// Window is the positive duration defining the logical rate period.
	Window time.Duration
	// MaxRequests is the positive limit within one window.
	MaxRequests int64
	// Algorithm selects which of the five decision procedures to use.
	Algorithm AlgorithmID

	// BucketSize is the token bucket capacity; defaults to MaxRequests.
	BucketSize int64
	// RefillRate is tokens added per RefillInterval.
	RefillRate int64
	// RefillInterval is the duration over which RefillRate tokens are added.
	RefillInterval time.Duration

	// QueueSize is the leaking bucket capacity; defaults to MaxRequests.
	QueueSize int64
	// ProcessingRate is requests drained per second.
	ProcessingRate float64

	// Message overrides the default rejection error message when set.
	Message string
	// StatusCode is the HTTP status written on rejection; default 429.
	StatusCode int
	// HeadersEnabled controls whether X-RateLimit-* headers are emitted.
	HeadersEnabled bool

	// KeyFunc derives the client key from a request; defaults to DefaultKeyFunc.
	KeyFunc KeyFunc
	// ErrorHandler writes the rejection response; defaults to writing the
	// standard JSON body documented in the external interfaces section.
	ErrorHandler ErrorHandler
	// Logger receives Debugf/Errorf calls; defaults to a no-op logger.
	Logger Logger
}

// Option configures a Config. It is the functional-options pattern this
// package's teacher already uses for its middleware Config.
type Option func(*Config)

// NewConfig builds a validated Config for window/maxRequests/algorithm plus
// any functional options, applying algorithm-specific defaults. It returns
// a *ConfigError (wrapping ErrInvalidConfig) for any invalid field, so that
// a limiter is never constructible with bad configuration.
func NewConfig(window time.Duration, maxRequests int64, algorithm AlgorithmID, opts ...Option) (*Config, error) {
	if window <= 0 {
		return nil, &ConfigError{Field: "window", Value: window, Reason: "must be positive"}
	}
	if maxRequests <= 0 {
		return nil, &ConfigError{Field: "maxRequests", Value: maxRequests, Reason: "must be positive"}
	}
	if !algorithm.valid() {
		return nil, &ConfigError{Field: "algorithm", Value: algorithm, Reason: "must be one of the five known algorithm ids"}
	}

	cfg := &Config{
		Window:         window,
		MaxRequests:    maxRequests,
		Algorithm:      algorithm,
		BucketSize:     maxRequests,
		RefillRate:     maxRequests,
		RefillInterval: time.Second,
		QueueSize:      maxRequests,
		ProcessingRate: float64(maxRequests),
		StatusCode:     http.StatusTooManyRequests,
		HeadersEnabled: true,
		KeyFunc:        DefaultKeyFunc,
		Logger:         noopLogger{},
	}
	cfg.ErrorHandler = newDefaultErrorHandler(cfg)

	for _, opt := range opts {
		opt(cfg)
	}

	switch algorithm {
	case TokenBucket:
		if cfg.BucketSize < 1 {
			return nil, &ConfigError{Field: "bucketSize", Value: cfg.BucketSize, Reason: "must be at least 1"}
		}
		if cfg.RefillRate <= 0 {
			return nil, &ConfigError{Field: "refillRate", Value: cfg.RefillRate, Reason: "must be positive"}
		}
		if cfg.RefillInterval <= 0 {
			return nil, &ConfigError{Field: "refillInterval", Value: cfg.RefillInterval, Reason: "must be positive"}
		}
	case LeakingBucket:
		if cfg.QueueSize < 1 {
			return nil, &ConfigError{Field: "queueSize", Value: cfg.QueueSize, Reason: "must be at least 1"}
		}
		if cfg.ProcessingRate <= 0 {
			return nil, &ConfigError{Field: "processingRate", Value: cfg.ProcessingRate, Reason: "must be positive"}
		}
	}

	return cfg, nil
}

// WithBucketSize overrides the token bucket capacity (default MaxRequests).
func WithBucketSize(size int64) Option {
	return func(c *Config) { c.BucketSize = size }
}

// WithRefillRate overrides the token bucket refill rate.
func WithRefillRate(rate int64) Option {
	return func(c *Config) { c.RefillRate = rate }
}

// WithRefillInterval overrides the token bucket refill interval.
func WithRefillInterval(d time.Duration) Option {
	return func(c *Config) { c.RefillInterval = d }
}

// WithQueueSize overrides the leaking bucket capacity (default MaxRequests).
func WithQueueSize(size int64) Option {
	return func(c *Config) { c.QueueSize = size }
}

// WithProcessingRate overrides the leaking bucket drain rate, in requests per second.
func WithProcessingRate(rate float64) Option {
	return func(c *Config) { c.ProcessingRate = rate }
}

// WithMessage overrides the rejection message used by the default ErrorHandler.
func WithMessage(msg string) Option {
	return func(c *Config) { c.Message = msg }
}

// WithStatusCode overrides the HTTP status code written on rejection.
func WithStatusCode(code int) Option {
	return func(c *Config) { c.StatusCode = code }
}

// WithHeadersEnabled toggles whether X-RateLimit-* headers are emitted.
func WithHeadersEnabled(enabled bool) Option {
	return func(c *Config) { c.HeadersEnabled = enabled }
}

// WithKeyFunc overrides the client key extractor.
func WithKeyFunc(f KeyFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.KeyFunc = f
		}
	}
}

// WithErrorHandler overrides the rejection response writer.
func WithErrorHandler(f ErrorHandler) Option {
	return func(c *Config) {
		if f != nil {
			c.ErrorHandler = f
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// DefaultKeyFunc derives a client key from the leftmost address in the
// X-Forwarded-For chain if present, else the request's peer address, else
// the literal "unknown". The forwarded-for chain is only trustworthy when
// the embedding server controls its fronting proxies; callers that don't
// should supply their own KeyFunc via WithKeyFunc.
func DefaultKeyFunc(r *http.Request) (string, error) {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first), nil
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr, nil
	}
	return "unknown", nil
}
