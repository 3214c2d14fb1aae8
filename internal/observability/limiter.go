package observability

import (
	"context"
	"time"

	"socialdash/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeAllowed  = "allowed"
	outcomeRejected = "rejected"
)

// InstrumentedLimiter wraps a ratelimit.Limiter and records every decision.
// Client identifiers are kept off metric labels to bound cardinality.
type InstrumentedLimiter struct {
	inner     ratelimit.Limiter
	strategy  string
	tracer    trace.Tracer
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
}

func NewInstrumentedLimiter(inner ratelimit.Limiter, strategy string) (*InstrumentedLimiter, error) {
	meter := otel.Meter("socialdash/ratelimit")

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Number of rate limit decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"ratelimit.check.duration",
		metric.WithDescription("Duration of rate limit checks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	// The in-memory strategy also exposes how many counter records it holds.
	if counted, ok := inner.(interface{ Len() int }); ok {
		_, err := meter.Int64ObservableGauge(
			"ratelimit.records",
			metric.WithDescription("Counter records held by the limiter, expired ones included until swept"),
			metric.WithUnit("{record}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(counted.Len()), metric.WithAttributes(attribute.String("strategy", strategy)))
				return nil
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	return &InstrumentedLimiter{
		inner:     inner,
		strategy:  strategy,
		tracer:    otel.Tracer("socialdash/ratelimit"),
		decisions: decisions,
		duration:  duration,
	}, nil
}

func (l *InstrumentedLimiter) Check(ctx context.Context, policy ratelimit.Policy, identifier string) ratelimit.Decision {
	ctx, span := l.tracer.Start(ctx, "ratelimit.Check",
		trace.WithAttributes(
			attribute.String("ratelimit.strategy", l.strategy),
			attribute.Int("ratelimit.limit", policy.MaxRequests),
		),
	)
	defer span.End()

	start := time.Now()
	decision := l.inner.Check(ctx, policy, identifier)

	outcome := outcomeAllowed
	if !decision.Allowed {
		outcome = outcomeRejected
	}
	span.SetAttributes(
		attribute.String("ratelimit.outcome", outcome),
		attribute.Int("ratelimit.remaining", decision.Remaining),
	)

	strategy := attribute.String("strategy", l.strategy)
	l.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(strategy))
	l.decisions.Add(ctx, 1, metric.WithAttributes(strategy, attribute.String("outcome", outcome)))

	return decision
}
