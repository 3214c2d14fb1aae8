package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialdash/internal/models"
	"socialdash/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMemoryStorage(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewMemoryStorage(storage.Config{Type: "memory"})
	require.NoError(t, err)
	return s
}

func TestInstrumentedStorage_PassesThrough(t *testing.T) {
	provider := setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(setupMemoryStorage(t))
	require.NoError(t, err)
	defer instrumented.Close()

	ctx := context.Background()
	postedAt := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, instrumented.SavePost(ctx, &models.Post{
		ID:        "p1",
		UserID:    "u1",
		Platform:  models.PlatformInstagram,
		MediaType: models.MediaTypeImage,
		PostedAt:  postedAt,
		Likes:     5,
		CreatedAt: postedAt,
	}))
	require.NoError(t, instrumented.SaveDailyMetric(ctx, &models.DailyMetric{
		ID:         "m1",
		UserID:     "u1",
		Date:       "2024-03-09",
		Engagement: 40,
		Reach:      300,
		CreatedAt:  postedAt,
	}))

	posts, err := instrumented.Posts(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	post, err := instrumented.GetPost(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), post.Likes)

	metrics, err := instrumented.DailyMetrics(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.Len(t, metrics, 1)

	assert.NoError(t, instrumented.Ping(ctx))

	g := provider.Gatherer()
	assert.Equal(t, uint64(1), histogramCount(t, g, "storage_operation_duration", map[string]string{"operation": "Posts"}))
	assert.Equal(t, uint64(1), histogramCount(t, g, "storage_operation_duration", map[string]string{"operation": "Ping"}))
}

type failingStorage struct {
	storage.Storage
	err error
}

func (f failingStorage) Ping(context.Context) error { return f.err }

func TestInstrumentedStorage_NotFoundIsNotAFailure(t *testing.T) {
	provider := setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(setupMemoryStorage(t))
	require.NoError(t, err)

	_, err = instrumented.GetPost(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	g := provider.Gatherer()
	assert.Equal(t, uint64(1), histogramCount(t, g, "storage_operation_duration", map[string]string{"operation": "GetPost", "outcome": "not_found"}))
	assert.Nil(t, findFamily(t, g, "storage_operation_errors"))
}

func TestInstrumentedStorage_CountsErrors(t *testing.T) {
	provider := setupTestProvider(t)

	down := errors.New("connection refused")
	instrumented, err := NewInstrumentedStorage(failingStorage{Storage: setupMemoryStorage(t), err: down})
	require.NoError(t, err)

	for range 2 {
		assert.ErrorIs(t, instrumented.Ping(context.Background()), down)
	}

	g := provider.Gatherer()
	assert.Equal(t, float64(2), counterValue(t, g, "storage_operation_errors", map[string]string{"operation": "Ping"}))
	assert.Equal(t, uint64(2), histogramCount(t, g, "storage_operation_duration", map[string]string{"operation": "Ping", "outcome": "error"}))
}
