package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"socialdash/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStorage_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	ctx := context.Background()

	first, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.SavePost(ctx, testPost("p1", "u1", models.PlatformTikTok, baseTime)))
	require.NoError(t, first.SaveDailyMetric(ctx, &models.DailyMetric{ID: "m1", UserID: "u1", Date: "2024-03-01", Engagement: 5}))
	require.NoError(t, first.Close())

	second, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	posts, err := second.Posts(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)

	metrics, err := second.DailyMetrics(ctx, "u1", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, metrics, 1)
}

func TestJSONStorage_FailedWriteLeavesCacheUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	ctx := context.Background()

	s, err := NewJSONStorage(Config{Path: path, CacheTTL: "1h"})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SavePost(ctx, testPost("p1", "u1", models.PlatformTikTok, baseTime)))
	require.NoError(t, s.SaveDailyMetric(ctx, &models.DailyMetric{ID: "m1", UserID: "u1", Date: "2024-03-01", Engagement: 5}))

	// A directory in place of the file makes the final rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0600))

	assert.Error(t, s.SavePost(ctx, testPost("p2", "u1", models.PlatformTikTok, baseTime)))
	assert.Error(t, s.SaveDailyMetric(ctx, &models.DailyMetric{ID: "m2", UserID: "u1", Date: "2024-03-01", Engagement: 99}))

	posts, err := s.Posts(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)

	metrics, err := s.DailyMetrics(ctx, "u1", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, int64(5), metrics[0].Engagement)
}

func TestJSONStorage_RequiresPath(t *testing.T) {
	_, err := NewJSONStorage(Config{})
	assert.Error(t, err)
}

func TestJSONStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewJSONStorage(Config{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestJSONStorage_PingAfterFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	s, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, os.Remove(path))
	assert.Error(t, s.Ping(context.Background()))
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s, err := NewMemoryStorage(Config{})
	require.NoError(t, err)
	ctx := context.Background()

	p := testPost("p1", "u1", models.PlatformInstagram, baseTime)
	require.NoError(t, s.SavePost(ctx, p))
	p.Likes = 9999

	got, err := s.GetPost(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Likes)

	got.Likes = 1
	again, err := s.GetPost(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.Likes)
}
