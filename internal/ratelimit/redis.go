package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultKeyPrefix namespaces counter keys in the remote store.
	DefaultKeyPrefix = "ratelimit:"

	// DefaultStoreTimeout bounds every remote check.
	DefaultStoreTimeout = 500 * time.Millisecond
)

// CounterStore is the minimal atomic key-value contract RedisLimiter needs. Any store
// offering these three primitives can back the limiter.
type CounterStore interface {
	// Incr atomically increments key and returns the new value. A missing key is
	// created at 1 in the same step.
	Incr(ctx context.Context, key string) (int64, error)

	// PExpire sets the key's time-to-live with millisecond precision.
	PExpire(ctx context.Context, key string, ttl time.Duration) error

	// PTTL returns the key's remaining time-to-live. Non-positive values mean the
	// key has no expiry or does not exist.
	PTTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisStore implements CounterStore on top of go-redis.
type RedisStore struct {
	client redis.UniversalClient
}

var _ CounterStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. The caller owns the client's lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) PExpire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.PExpire(ctx, key, ttl).Err()
}

func (s *RedisStore) PTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.PTTL(ctx, key).Result()
}

// Ping reports whether the store is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// FailureMode selects what RedisLimiter decides when the store is unavailable.
type FailureMode int

const (
	// FailOpen admits requests while the store is down.
	FailOpen FailureMode = iota
	// FailClosed rejects requests while the store is down.
	FailClosed
)

func (f FailureMode) String() string {
	switch f {
	case FailOpen:
		return "open"
	case FailClosed:
		return "closed"
	default:
		return fmt.Sprintf("FailureMode(%d)", int(f))
	}
}

// ParseFailureMode converts a config value ("open" or "closed") to a FailureMode.
func ParseFailureMode(s string) (FailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unsupported failure mode: %q", s)
	}
}

// RedisLimiter counts requests in a shared remote store so every server instance sees
// the same per-identifier count. Atomicity comes from the store's increment primitive.
//
// The expiry is set with a second call after the increment that created the key. A
// crash between the two leaves a key without a TTL; that gap is accepted and left to
// operational monitoring.
type RedisLimiter struct {
	store       CounterStore
	prefix      string
	timeout     time.Duration
	failureMode FailureMode
	breaker     *gobreaker.CircuitBreaker
	now         func() time.Time

	// Store outages fail every request; only log some of them.
	failureLog rate.Sometimes
}

// RedisOption configures a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) {
		l.prefix = prefix
	}
}

// WithStoreTimeout bounds each Check's store round trips.
func WithStoreTimeout(timeout time.Duration) RedisOption {
	return func(l *RedisLimiter) {
		l.timeout = timeout
	}
}

// WithFailureMode selects fail-open (default) or fail-closed behavior.
func WithFailureMode(mode FailureMode) RedisOption {
	return func(l *RedisLimiter) {
		l.failureMode = mode
	}
}

// WithBreaker short-circuits store calls after repeated failures. While the breaker is
// open the failure mode applies without a network round trip.
func WithBreaker(settings gobreaker.Settings) RedisOption {
	return func(l *RedisLimiter) {
		if settings.Name == "" {
			settings.Name = "ratelimit-store"
		}
		if settings.OnStateChange == nil {
			settings.OnStateChange = func(name string, from, to gobreaker.State) {
				slog.Warn("Rate limit store breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
		}
		l.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// WithRedisClock overrides the time source.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(l *RedisLimiter) {
		l.now = now
	}
}

// DefaultBreakerSettings trips after five consecutive store failures and probes the
// store again after ten seconds.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "ratelimit-store",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// NewRedisLimiter creates a limiter backed by store.
func NewRedisLimiter(store CounterStore, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		store:       store,
		prefix:      DefaultKeyPrefix,
		timeout:     DefaultStoreTimeout,
		failureMode: FailOpen,
		now:         time.Now,
		failureLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check increments the identifier's shared counter and decides against policy.
func (l *RedisLimiter) Check(ctx context.Context, policy Policy, identifier string) Decision {
	now := l.now()
	if err := policy.Validate(); err != nil {
		slog.Error("Rate limit check with invalid policy", "error", err, "identifier", identifier)
		return reject(policy, now)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	key := l.prefix + identifier

	decision, err := l.execute(func() (Decision, error) {
		return l.check(ctx, policy, key, now)
	})
	if err != nil {
		return l.onStoreFailure(policy, identifier, now, err)
	}
	return decision
}

func (l *RedisLimiter) execute(fn func() (Decision, error)) (Decision, error) {
	if l.breaker == nil {
		return fn()
	}
	result, err := l.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return Decision{}, err
	}
	return result.(Decision), nil
}

func (l *RedisLimiter) check(ctx context.Context, policy Policy, key string, now time.Time) (Decision, error) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("increment %s: %w", key, err)
	}

	if count == 1 {
		if err := l.store.PExpire(ctx, key, policy.Window); err != nil {
			return Decision{}, fmt.Errorf("set expiry on %s: %w", key, err)
		}
	}

	fallbackReset := now.Add(policy.Window)

	if count > int64(policy.MaxRequests) {
		resetAt := fallbackReset
		ttl, err := l.store.PTTL(ctx, key)
		switch {
		case err != nil:
			slog.Debug("Rate limit TTL lookup failed, using full window", "key", key, "error", err)
		case ttl > 0:
			resetAt = now.Add(ttl)
		}
		return reject(policy, resetAt), nil
	}

	// The admit path reports a full window from now rather than the key's real
	// expiry, saving a round trip. Only rejections carry the precise reset time.
	return admit(policy, int(count), fallbackReset), nil
}

func (l *RedisLimiter) onStoreFailure(policy Policy, identifier string, now time.Time, err error) Decision {
	resetAt := now.Add(policy.Window)
	breakerOpen := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)

	l.failureLog.Do(func() {
		attrs := []any{
			"error", err,
			"identifier", identifier,
			"failure_mode", l.failureMode.String(),
			"breaker_open", breakerOpen,
		}
		if l.failureMode == FailClosed {
			slog.Error("Rate limit store unavailable, rejecting request", attrs...)
		} else {
			slog.Warn("Rate limit store unavailable, admitting request", attrs...)
		}
	})

	if l.failureMode == FailClosed {
		return reject(policy, resetAt)
	}
	return Decision{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests - 1,
		ResetAt:   resetAt,
	}
}
