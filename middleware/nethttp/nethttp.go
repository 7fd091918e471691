// Package nethttp provides middleware for the standard net/http library
// that enforces rate limiting using github.com/jassus213/ratelimit-core.
//
// This package wraps any http.Handler and evaluates every incoming
// request against a ratelimiter.Engine (an algorithm bound to a clock,
// a stats aggregator, and a config). It sets the standard
// X-RateLimit-* headers and writes the JSON rejection body documented
// by the core package's error handler.
//
// Example usage:
//
//	store := store.NewMemory(ctx, time.Minute)
//	cfg, _ := ratelimiter.NewConfig(time.Minute, 100, ratelimiter.FixedWindow)
//	engine, _ := ratelimiter.NewEngine(cfg, store, ratelimiter.NewRealClock(), nil)
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", handler)
//	http.ListenAndServe(":8080", nethttp.Middleware(engine)(mux))
package nethttp

import (
	"net/http"

	"github.com/jassus213/ratelimit-core/ratelimiter"
)

// Middleware returns a middleware handler for the standard net/http
// library backed by engine.
//
// On a storage error the request fails open: it is forwarded to next
// without rate-limit headers, and the failure is logged through
// engine.Config.Logger but never surfaced to the client. If cfg.KeyFunc
// fails, the key falls back to "unknown" and the request is still
// evaluated; no error from the core ever reaches the client as a 5xx.
func Middleware(engine *ratelimiter.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := engine.Config

			key, err := cfg.KeyFunc(r)
			if err != nil {
				cfg.Logger.Errorf("[RateLimiter] failed to derive key, falling back to \"unknown\": %v", err)
				key = "unknown"
			}

			decision, failOpen := engine.Evaluate(r.Context(), key)
			if failOpen {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.HeadersEnabled {
				ratelimiter.WriteHeaders(w, decision)
			}

			if !decision.Allowed {
				cfg.Logger.Debugf("[RateLimiter] request denied for key %q: remaining=%d limit=%d", key, decision.Remaining, decision.Limit)
				cfg.ErrorHandler(w, r, ratelimiter.ErrorExceeded, decision)
				return
			}

			cfg.Logger.Debugf("[RateLimiter] request allowed for key %q: remaining=%d limit=%d", key, decision.Remaining, decision.Limit)
			next.ServeHTTP(w, r)
		})
	}
}
