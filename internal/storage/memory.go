package storage

import (
	"context"
	"fmt"
	"sync"

	"socialdash/internal/models"
)

// MemoryStorage holds everything in process memory. Nothing survives a
// restart; it backs tests and local runs without a database.
type MemoryStorage struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
	// daily rows by user, then by YYYY-MM-DD
	daily map[string]map[string]*models.DailyMetric
}

func NewMemoryStorage(_ Config) (*MemoryStorage, error) {
	m := &MemoryStorage{}
	m.reset()
	return m, nil
}

func (m *MemoryStorage) reset() {
	m.posts = make(map[string]*models.Post)
	m.daily = make(map[string]map[string]*models.DailyMetric)
}

// mergeMetric applies an upsert to an existing row. Identity and creation
// time stay with the first row, as the SQL backends do.
func mergeMetric(existing, incoming *models.DailyMetric) *models.DailyMetric {
	merged := copyMetric(existing)
	merged.Engagement = incoming.Engagement
	merged.Reach = incoming.Reach
	return merged
}

func (m *MemoryStorage) Posts(_ context.Context, userID, platform string) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]*models.Post, 0)
	for _, p := range m.posts {
		if matchPost(p, userID, platform) {
			posts = append(posts, copyPost(p))
		}
	}
	sortPostsNewestFirst(posts)
	return posts, nil
}

func (m *MemoryStorage) GetPost(_ context.Context, userID, postID string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.posts[postID]; ok && p.UserID == userID {
		return copyPost(p), nil
	}
	return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
}

func (m *MemoryStorage) SavePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	m.posts[post.ID] = copyPost(post)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) DailyMetrics(_ context.Context, userID, since string) ([]*models.DailyMetric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.daily[userID]
	metrics := make([]*models.DailyMetric, 0, len(rows))
	for date, row := range rows {
		if date >= since {
			metrics = append(metrics, copyMetric(row))
		}
	}
	sortMetricsByDate(metrics)
	return metrics, nil
}

func (m *MemoryStorage) SaveDailyMetric(_ context.Context, metric *models.DailyMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.daily[metric.UserID]
	if !ok {
		rows = make(map[string]*models.DailyMetric)
		m.daily[metric.UserID] = rows
	}
	if existing, ok := rows[metric.Date]; ok {
		rows[metric.Date] = mergeMetric(existing, metric)
		return nil
	}
	rows[metric.Date] = copyMetric(metric)
	return nil
}

func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close discards all rows.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.reset()
	m.mu.Unlock()
	return nil
}
