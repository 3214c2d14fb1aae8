package analytics

import (
	"context"

	"socialdash/internal/models"
)

// ServiceInterface defines the dashboard read operations
type ServiceInterface interface {
	// Summary computes headline engagement figures across all of a user's posts
	Summary(ctx context.Context, userID string) (*models.AnalyticsSummary, error)

	// DailyMetrics returns the user's daily rows for the requested trailing range
	DailyMetrics(ctx context.Context, req *models.DailyMetricsRequest) ([]*models.DailyMetric, error)

	// Posts lists the user's posts, newest first
	Posts(ctx context.Context, req *models.ListPostsRequest) ([]*models.Post, error)

	// Post returns one of the user's posts
	Post(ctx context.Context, userID, postID string) (*models.Post, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
