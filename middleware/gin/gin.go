// Package gin provides a Gin middleware adapter for
// github.com/jassus213/ratelimit-core.
//
// This package integrates rate limiting into a Gin HTTP server using a
// ratelimiter.Engine (an algorithm bound to a clock, a stats
// aggregator, and a config). It sets the standard X-RateLimit-* headers
// and writes the JSON rejection body documented by the core package's
// error handler.
//
// Example usage, with this package imported as ratelimitgin:
//
//	store := store.NewMemory(ctx, time.Minute)
//	cfg, _ := ratelimiter.NewConfig(time.Minute, 100, ratelimiter.TokenBucket)
//	engine, _ := ratelimiter.NewEngine(cfg, store, ratelimiter.NewRealClock(), nil)
//
//	router := gin.Default()
//	router.Use(ratelimitgin.RateLimiter(engine))
//	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
//	router.Run(":8080")
package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/jassus213/ratelimit-core/ratelimiter"
)

// RateLimiter creates a Gin middleware handler backed by engine.
//
// On a storage error the request fails open: it is passed to c.Next()
// without rate-limit headers, and the failure is logged through
// engine.Config.Logger but never surfaced to the client. If cfg.KeyFunc
// fails, the key falls back to "unknown" and the request is still
// evaluated; no error from the core ever reaches the client as a 5xx.
func RateLimiter(engine *ratelimiter.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := engine.Config

		key, err := cfg.KeyFunc(c.Request)
		if err != nil {
			cfg.Logger.Errorf("[RateLimiter] failed to derive key, falling back to \"unknown\": %v", err)
			key = "unknown"
		}

		decision, failOpen := engine.Evaluate(c.Request.Context(), key)
		if failOpen {
			c.Next()
			return
		}

		if cfg.HeadersEnabled {
			ratelimiter.WriteHeaders(c.Writer, decision)
		}

		if !decision.Allowed {
			cfg.Logger.Debugf("[RateLimiter] request denied for key %q: remaining=%d limit=%d", key, decision.Remaining, decision.Limit)
			cfg.ErrorHandler(c.Writer, c.Request, ratelimiter.ErrorExceeded, decision)
			c.Abort()
			return
		}

		cfg.Logger.Debugf("[RateLimiter] request allowed for key %q: remaining=%d limit=%d", key, decision.Remaining, decision.Limit)
		c.Next()
	}
}
