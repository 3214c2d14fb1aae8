package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"socialdash/internal/models"
	"socialdash/internal/observability"
	"socialdash/internal/ratelimit"

	"github.com/redis/go-redis/v9"
)

// redisStartupPingTimeout bounds the connection test run once at startup.
const redisStartupPingTimeout = 3 * time.Second

// rateLimit bundles the API route limiter with the resources it owns.
type rateLimit struct {
	limiter    ratelimit.Limiter
	middleware func(http.Handler) http.Handler
	// store is the shared counter store, nil for the memory strategy.
	store   *ratelimit.RedisStore
	closers []func() error
}

func (r *rateLimit) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildRateLimit creates the configured limiter strategy and its middleware.
func buildRateLimit(ctx context.Context, cfg *models.Config) (*rateLimit, error) {
	rlCfg := cfg.RateLimit
	rl := &rateLimit{}

	switch rlCfg.Strategy {
	case models.RateLimitStrategyMemory:
		memory := ratelimit.NewMemoryLimiter(
			ratelimit.WithCleanupProbability(rlCfg.CleanupProbability),
			ratelimit.WithSweepInterval(rlCfg.SweepInterval),
		)
		rl.limiter = memory
		rl.closers = append(rl.closers, func() error {
			memory.Close()
			return nil
		})

	case models.RateLimitStrategyRedis:
		mode, err := ratelimit.ParseFailureMode(rlCfg.FailureMode)
		if err != nil {
			return nil, err
		}

		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		rl.closers = append(rl.closers, client.Close)

		store := ratelimit.NewRedisStore(client)
		rl.store = store
		testRedisConnection(ctx, store, cfg.Redis.Addr)

		opts := []ratelimit.RedisOption{
			ratelimit.WithKeyPrefix(rlCfg.KeyPrefix),
			ratelimit.WithStoreTimeout(rlCfg.StoreTimeout),
			ratelimit.WithFailureMode(mode),
		}
		if rlCfg.Breaker {
			opts = append(opts, ratelimit.WithBreaker(ratelimit.DefaultBreakerSettings()))
		}
		rl.limiter = ratelimit.NewRedisLimiter(store, opts...)

	default:
		return nil, fmt.Errorf("unsupported rate limit strategy: %q", rlCfg.Strategy)
	}

	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedLimiter(rl.limiter, rlCfg.Strategy)
		if err != nil {
			rl.Close()
			return nil, fmt.Errorf("instrument rate limiter: %w", err)
		}
		rl.limiter = instrumented
	}

	format, err := ratelimit.ParseResetFormat(rlCfg.HeaderFormat)
	if err != nil {
		rl.Close()
		return nil, err
	}

	policy := ratelimit.Policy{Window: rlCfg.Window, MaxRequests: rlCfg.MaxRequests}
	if err := policy.Validate(); err != nil {
		rl.Close()
		return nil, err
	}
	rl.middleware = ratelimit.Middleware(rl.limiter, policy, ratelimit.WithResetFormat(format))

	slog.Info("Rate limiter initialized",
		"strategy", rlCfg.Strategy,
		"window", rlCfg.Window,
		"max_requests", rlCfg.MaxRequests,
		"failure_mode", rlCfg.FailureMode,
	)
	return rl, nil
}

// testRedisConnection pings the counter store once. A failure is logged and startup
// continues; the limiter applies its failure mode until the store recovers.
func testRedisConnection(ctx context.Context, store *ratelimit.RedisStore, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, redisStartupPingTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		slog.Warn("Rate limit store unreachable at startup", "addr", addr, "error", err)
		return false
	}
	slog.Info("Rate limit store connected", "addr", addr)
	return true
}
