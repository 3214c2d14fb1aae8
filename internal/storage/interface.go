package storage

import (
	"context"
	"time"

	"socialdash/internal/models"
)

// Storage defines the interface for post and daily metric persistence.
// Every read is scoped to one user; callers never see another user's rows.
type Storage interface {
	// Posts returns the user's posts ordered by posted_at, newest first.
	// An empty platform returns posts from every platform.
	Posts(ctx context.Context, userID, platform string) ([]*models.Post, error)

	// GetPost retrieves a single post. Returns ErrNotFound if the post does not
	// exist or belongs to another user.
	GetPost(ctx context.Context, userID, postID string) (*models.Post, error)

	// SavePost stores or updates a post
	SavePost(ctx context.Context, post *models.Post) error

	// DailyMetrics returns the user's daily rows with date >= since (YYYY-MM-DD),
	// ordered by date ascending.
	DailyMetrics(ctx context.Context, userID, since string) ([]*models.DailyMetric, error)

	// SaveDailyMetric stores or updates a daily metric row
	SaveDailyMetric(ctx context.Context, metric *models.DailyMetric) error

	// Ping verifies the storage backend is reachable and operational
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (json, memory, sqlite, postgres)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// CacheTTL specifies how long the JSON backend trusts its in-memory copy
	CacheTTL string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}
