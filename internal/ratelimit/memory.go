package ratelimit

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultCleanupProbability is the chance that a Check also sweeps expired records.
const DefaultCleanupProbability = 0.01

// counterRecord is the live window for one identifier.
type counterRecord struct {
	count   int
	resetAt time.Time
}

func (c *counterRecord) expired(now time.Time) bool {
	return !now.Before(c.resetAt)
}

// MemoryLimiter is a process-local fixed-window counter. Each identifier owns at most
// one record; an expired record is replaced by a fresh window, never repaired.
//
// The lookup-then-increment sequence runs under a mutex so concurrent requests for the
// same identifier cannot both read the same count. Records are only shared inside one
// process: replicated deployments need RedisLimiter.
//
// Memory growth from one-shot identifiers is bounded by a probabilistic sweep on the
// request path and, optionally, by a periodic background sweep.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*counterRecord

	now                func() time.Time
	random             func() float64
	cleanupProbability float64
	sweepInterval      time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		m.now = now
	}
}

// WithRandom overrides the source used to decide whether a Check sweeps.
// It must return values in [0, 1).
func WithRandom(random func() float64) MemoryOption {
	return func(m *MemoryLimiter) {
		m.random = random
	}
}

// WithCleanupProbability sets the per-call sweep probability. Zero disables it.
func WithCleanupProbability(p float64) MemoryOption {
	return func(m *MemoryLimiter) {
		m.cleanupProbability = p
	}
}

// WithSweepInterval starts a background goroutine that drops expired records on a
// ticker. Call Close to stop it.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(m *MemoryLimiter) {
		m.sweepInterval = interval
	}
}

// NewMemoryLimiter creates an empty in-process limiter.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		records:            make(map[string]*counterRecord),
		now:                time.Now,
		random:             rand.Float64,
		cleanupProbability: DefaultCleanupProbability,
		done:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sweepInterval > 0 {
		go m.sweep()
	}
	return m
}

// Check applies the fixed-window algorithm for identifier.
func (m *MemoryLimiter) Check(_ context.Context, policy Policy, identifier string) Decision {
	now := m.now()
	if err := policy.Validate(); err != nil {
		slog.Error("Rate limit check with invalid policy", "error", err, "identifier", identifier)
		return reject(policy, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	decision := m.check(policy, identifier, now)

	if m.cleanupProbability > 0 && m.random() < m.cleanupProbability {
		m.evictExpired(now)
	}

	return decision
}

func (m *MemoryLimiter) check(policy Policy, identifier string, now time.Time) Decision {
	rec, ok := m.records[identifier]
	if !ok || rec.expired(now) {
		rec = &counterRecord{
			count:   1,
			resetAt: now.Add(policy.Window),
		}
		m.records[identifier] = rec
		return admit(policy, rec.count, rec.resetAt)
	}

	// The caller waits out the existing window; rejections never extend it.
	if rec.count >= policy.MaxRequests {
		return reject(policy, rec.resetAt)
	}

	rec.count++
	return admit(policy, rec.count, rec.resetAt)
}

// Len returns the number of stored records, expired or not.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close stops the background sweep, if any. It is safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.evictExpired(m.now())
			m.mu.Unlock()
		}
	}
}

// evictExpired drops every record whose window has passed. Callers hold m.mu.
func (m *MemoryLimiter) evictExpired(now time.Time) int {
	removed := 0
	for key, rec := range m.records {
		if rec.expired(now) {
			delete(m.records, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Evicted expired rate limit records", "removed", removed, "remaining", len(m.records))
	}
	return removed
}
