// Package analytics computes the dashboard's engagement figures from stored posts
// and daily metric rows.
package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"socialdash/internal/models"
	"socialdash/internal/storage"
)

// TrendPeriod is the length of each half of the engagement trend comparison.
const TrendPeriod = 7 * 24 * time.Hour

// Service handles analytics business logic on top of a storage backend
type Service struct {
	storage storage.Storage
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces the time source used for trend windows and metric ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new analytics service with the given storage backend
func NewService(storage storage.Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary computes total engagement, the average engagement rate, the top post and
// the week-over-week trend. A user with no posts gets an all-zero summary.
func (s *Service) Summary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user is not authenticated")
	}

	posts, err := s.storage.Posts(ctx, userID, "")
	if err != nil {
		return nil, NewInternalError("failed to fetch posts", err)
	}

	if len(posts) == 0 {
		return models.NewEmptySummary(), nil
	}

	summary := &models.AnalyticsSummary{}

	var (
		rateSum   float64
		rateCount int
		top       = posts[0]
	)
	for _, p := range posts {
		summary.TotalEngagement += p.Engagement()
		if p.EngagementRate != nil {
			rateSum += *p.EngagementRate
			rateCount++
		}
		// Strictly greater: the earliest post in storage order wins ties.
		if p.Engagement() > top.Engagement() {
			top = p
		}
	}

	if rateCount > 0 {
		summary.AverageEngagementRate = roundHundredths(rateSum / float64(rateCount))
	}
	summary.TopPerformingPost = models.NewTopPost(top)
	summary.EngagementTrend = engagementTrend(posts, s.now())

	return summary, nil
}

// engagementTrend sums engagement for posts in [now-7d, +inf) and [now-14d, now-7d).
func engagementTrend(posts []*models.Post, now time.Time) models.EngagementTrend {
	currentStart := now.Add(-TrendPeriod)
	previousStart := now.Add(-2 * TrendPeriod)

	var trend models.EngagementTrend
	for _, p := range posts {
		switch {
		case !p.PostedAt.Before(currentStart):
			trend.Current += p.Engagement()
		case !p.PostedAt.Before(previousStart):
			trend.Previous += p.Engagement()
		}
	}

	trend.PercentageChange = roundHundredths(percentageChange(trend.Current, trend.Previous))
	return trend
}

// percentageChange returns 100 when growing from nothing and 0 when both periods are empty.
func percentageChange(current, previous int64) float64 {
	switch {
	case previous > 0:
		return float64(current-previous) / float64(previous) * 100
	case current > 0:
		return 100
	default:
		return 0
	}
}

// roundHundredths rounds to two decimals with halves going toward positive infinity.
func roundHundredths(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// DailyMetrics returns rows dated on or after today minus req.Days (UTC calendar days).
func (s *Service) DailyMetrics(ctx context.Context, req *models.DailyMetricsRequest) ([]*models.DailyMetric, error) {
	if req.UserID == "" {
		return nil, NewUnauthorizedError("user is not authenticated")
	}
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError(err.Error(), err)
	}

	since := s.now().UTC().AddDate(0, 0, -req.Days).Format(models.DateLayout)

	metrics, err := s.storage.DailyMetrics(ctx, req.UserID, since)
	if err != nil {
		return nil, NewInternalError("failed to fetch metrics", err)
	}
	return metrics, nil
}

// Posts lists the user's posts, newest first, optionally filtered by platform.
func (s *Service) Posts(ctx context.Context, req *models.ListPostsRequest) ([]*models.Post, error) {
	if req.UserID == "" {
		return nil, NewUnauthorizedError("user is not authenticated")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError(err.Error(), err)
	}

	posts, err := s.storage.Posts(ctx, req.UserID, req.Platform)
	if err != nil {
		return nil, NewInternalError("failed to fetch posts", err)
	}
	return posts, nil
}

// Post returns a single post owned by the user.
func (s *Service) Post(ctx context.Context, userID, postID string) (*models.Post, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user is not authenticated")
	}
	if postID == "" {
		return nil, NewInvalidRequestError("post ID is required", nil)
	}

	post, err := s.storage.GetPost(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("post not found", err)
		}
		return nil, NewInternalError("failed to fetch post", err)
	}
	return post, nil
}
