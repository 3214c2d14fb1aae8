// Package ratelimit protects HTTP routes with a fixed-window request counter keyed by
// client identity. Two interchangeable strategies satisfy the Limiter contract: an
// in-process MemoryLimiter for single-instance deployments and a RedisLimiter that
// delegates counting to an atomic remote store so several instances share one count.
// Middleware surfaces the decision as standard rate limit response headers.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPolicy is returned by Policy.Validate for non-positive windows or limits.
var ErrInvalidPolicy = errors.New("ratelimit: invalid policy")

// Limiter decides whether a request from identifier is admitted under policy.
// Implementations must be safe for concurrent use and must never surface store
// failures to the caller; each strategy applies its own failure policy instead.
type Limiter interface {
	Check(ctx context.Context, policy Policy, identifier string) Decision
}

// Policy is the per-endpoint window configuration.
type Policy struct {
	Window      time.Duration // Length of the counting window
	MaxRequests int           // Admit threshold per window
}

// Validate rejects policies that would make admission meaningless.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidPolicy, p.Window)
	}
	if p.Window < time.Millisecond {
		return fmt.Errorf("%w: window must be at least 1ms, got %s", ErrInvalidPolicy, p.Window)
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidPolicy, p.MaxRequests)
	}
	return nil
}

// Decision is the outcome of a single Check. It is computed per request and never stored.
type Decision struct {
	Allowed   bool
	Limit     int       // Policy.MaxRequests echoed for response headers
	Remaining int       // Quota left in the current window, floored at zero
	ResetAt   time.Time // When the caller should try again
}

// RetryAfter returns whole seconds until ResetAt, rounded up and floored at zero.
func (d Decision) RetryAfter(now time.Time) int {
	secs := math.Ceil(d.ResetAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

func admit(policy Policy, count int, resetAt time.Time) Decision {
	return Decision{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: max(0, policy.MaxRequests-count),
		ResetAt:   resetAt,
	}
}

func reject(policy Policy, resetAt time.Time) Decision {
	return Decision{
		Allowed:   false,
		Limit:     policy.MaxRequests,
		Remaining: 0,
		ResetAt:   resetAt,
	}
}
