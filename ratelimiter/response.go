package ratelimiter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// rejectionBody is the JSON shape written on every 429, per the external
// interfaces section: error, retryAfter, limit, remaining, resetTime.
type rejectionBody struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter"`
	Limit      int64  `json:"limit"`
	Remaining  int64  `json:"remaining"`
	ResetTime  string `json:"resetTime"`
}

const defaultRejectionMessage = "rate limit exceeded"

// newDefaultErrorHandler returns the standard ErrorHandler for cfg. It
// closes over cfg itself (not a copy of its fields) so that a later
// WithMessage/WithStatusCode option, applied after this default is
// installed, is still honored when the handler eventually runs.
func newDefaultErrorHandler(cfg *Config) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error, decision Decision) {
		msg := cfg.Message
		if msg == "" {
			msg = defaultRejectionMessage
		}
		body := rejectionBody{
			Error:      msg,
			RetryAfter: decision.RetryAfterSeconds,
			Limit:      decision.Limit,
			Remaining:  0,
			ResetTime:  time.Unix(decision.ResetAtUnixSeconds, 0).UTC().Format(time.RFC3339),
		}

		status := cfg.StatusCode
		if status == 0 {
			status = http.StatusTooManyRequests
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteHeaders sets the standard X-RateLimit-* headers (and Retry-After
// when the request was denied) on w, per the external interfaces section.
func WriteHeaders(w http.ResponseWriter, decision Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAtUnixSeconds, 10))
	if !decision.Allowed {
		w.Header().Set("Retry-After", strconv.FormatInt(decision.RetryAfterSeconds, 10))
	}
}
