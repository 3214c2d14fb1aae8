package observability

import (
	"context"
	"errors"
	"time"

	"socialdash/internal/models"
	"socialdash/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const storageScope = "socialdash/storage"

// InstrumentedStorage decorates a storage.Storage. Each call gets a client
// span and a latency sample tagged with its outcome (ok, not_found, error);
// only genuine failures count toward storage.operation.errors.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	meter := otel.Meter(storageScope)

	duration, err := meter.Float64Histogram("storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("storage.operation.errors",
		metric.WithDescription("Storage operations that failed, excluding lookups of missing rows"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   otel.Tracer(storageScope),
		duration: duration,
		failures: failures,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// observe runs fn inside a span and records its latency and outcome. count,
// when set, reports the number of rows fn returned.
func observe[T any](ctx context.Context, s *InstrumentedStorage, op string, attrs []attribute.KeyValue, count func(T) int, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("storage.operation", op))...),
	)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	outcome := outcomeOf(err)
	s.duration.Record(ctx, elapsed, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))

	switch outcome {
	case "error":
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case "not_found":
		span.SetAttributes(attribute.Bool("storage.found", false))
	default:
		if count != nil {
			span.SetAttributes(attribute.Int("result.count", count(result)))
		}
		span.SetStatus(codes.Ok, "")
	}
	return result, err
}

func observeErr(ctx context.Context, s *InstrumentedStorage, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	_, err := observe(ctx, s, op, attrs, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func userAttr(userID string) attribute.KeyValue {
	return attribute.String("user_id", userID)
}

func (s *InstrumentedStorage) Posts(ctx context.Context, userID, platform string) ([]*models.Post, error) {
	attrs := []attribute.KeyValue{userAttr(userID), attribute.String("platform", platform)}
	return observe(ctx, s, "Posts", attrs, func(p []*models.Post) int { return len(p) },
		func(ctx context.Context) ([]*models.Post, error) { return s.inner.Posts(ctx, userID, platform) })
}

func (s *InstrumentedStorage) GetPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	attrs := []attribute.KeyValue{userAttr(userID), attribute.String("post_id", postID)}
	return observe(ctx, s, "GetPost", attrs, nil,
		func(ctx context.Context) (*models.Post, error) { return s.inner.GetPost(ctx, userID, postID) })
}

func (s *InstrumentedStorage) SavePost(ctx context.Context, post *models.Post) error {
	attrs := []attribute.KeyValue{userAttr(post.UserID), attribute.String("post_id", post.ID)}
	return observeErr(ctx, s, "SavePost", attrs,
		func(ctx context.Context) error { return s.inner.SavePost(ctx, post) })
}

func (s *InstrumentedStorage) DailyMetrics(ctx context.Context, userID, since string) ([]*models.DailyMetric, error) {
	attrs := []attribute.KeyValue{userAttr(userID), attribute.String("since", since)}
	return observe(ctx, s, "DailyMetrics", attrs, func(m []*models.DailyMetric) int { return len(m) },
		func(ctx context.Context) ([]*models.DailyMetric, error) {
			return s.inner.DailyMetrics(ctx, userID, since)
		})
}

func (s *InstrumentedStorage) SaveDailyMetric(ctx context.Context, m *models.DailyMetric) error {
	attrs := []attribute.KeyValue{userAttr(m.UserID), attribute.String("date", m.Date)}
	return observeErr(ctx, s, "SaveDailyMetric", attrs,
		func(ctx context.Context) error { return s.inner.SaveDailyMetric(ctx, m) })
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	return observeErr(ctx, s, "Ping", nil, s.inner.Ping)
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
