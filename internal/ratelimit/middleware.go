package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"socialdash/internal/models"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// ResetFormat selects how X-RateLimit-Reset is rendered. A deployment uses one format.
type ResetFormat string

const (
	ResetFormatISO   ResetFormat = "iso"   // RFC 3339 UTC timestamp
	ResetFormatEpoch ResetFormat = "epoch" // Unix seconds
)

type middlewareConfig struct {
	keyFunc     KeyFunc
	resetFormat ResetFormat
	now         func() time.Time
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithKeyFunc replaces ClientIdentifier as the source of counter keys.
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.keyFunc = fn
	}
}

// WithResetFormat selects the X-RateLimit-Reset format.
func WithResetFormat(format ResetFormat) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.resetFormat = format
	}
}

// WithMiddlewareClock overrides the clock used to compute Retry-After.
func WithMiddlewareClock(now func() time.Time) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.now = now
	}
}

// Middleware returns HTTP middleware that checks every request against policy before
// any downstream work runs. Quota headers are set on every response. Rejected requests
// get a 429 with Retry-After and a JSON error body; the next handler is not called.
//
// Middleware panics if policy is invalid, since a misconfigured endpoint should not
// start serving.
func Middleware(limiter Limiter, policy Policy, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if err := policy.Validate(); err != nil {
		panic(err)
	}

	cfg := &middlewareConfig{
		keyFunc:     ClientIdentifier,
		resetFormat: ResetFormatISO,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.keyFunc(r)
			decision := limiter.Check(r.Context(), policy, key)

			setQuotaHeaders(w.Header(), decision, cfg.resetFormat)

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(cfg.now())
				w.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimitExceeded).
					WithDetail("retry_after", strconv.Itoa(retryAfter))
				_ = json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", decision.Limit,
					"retry_after", retryAfter,
					"path", r.URL.Path,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setQuotaHeaders(h http.Header, d Decision, format ResetFormat) {
	h.Set(HeaderLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderReset, FormatReset(d.ResetAt, format))
}

// FormatReset renders a reset time for the X-RateLimit-Reset header.
func FormatReset(t time.Time, format ResetFormat) string {
	if format == ResetFormatEpoch {
		return strconv.FormatInt(t.Unix(), 10)
	}
	return t.UTC().Format(time.RFC3339)
}

// ParseResetFormat converts a config value to a ResetFormat.
func ParseResetFormat(s string) (ResetFormat, error) {
	switch ResetFormat(s) {
	case "", ResetFormatISO:
		return ResetFormatISO, nil
	case ResetFormatEpoch:
		return ResetFormatEpoch, nil
	default:
		return "", fmt.Errorf("unsupported reset header format: %q", s)
	}
}
