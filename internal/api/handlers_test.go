package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialdash/internal/analytics"
	"socialdash/internal/auth"
	"socialdash/internal/models"
	"socialdash/internal/version"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubPinger reports a fixed Ping result
type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(_ context.Context) error { return p.err }

// MockAnalyticsService implements analytics.ServiceInterface for testing
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Summary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	args := m.Called(ctx, userID)
	summary, _ := args.Get(0).(*models.AnalyticsSummary)
	return summary, args.Error(1)
}

func (m *MockAnalyticsService) DailyMetrics(ctx context.Context, req *models.DailyMetricsRequest) ([]*models.DailyMetric, error) {
	args := m.Called(ctx, req)
	metrics, _ := args.Get(0).([]*models.DailyMetric)
	return metrics, args.Error(1)
}

func (m *MockAnalyticsService) Posts(ctx context.Context, req *models.ListPostsRequest) ([]*models.Post, error) {
	args := m.Called(ctx, req)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Error(1)
}

func (m *MockAnalyticsService) Post(ctx context.Context, userID, postID string) (*models.Post, error) {
	args := m.Called(ctx, userID, postID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestNewHandlers(t *testing.T) {
	mockService := &MockAnalyticsService{}
	handlers := NewHandlers(mockService)

	assert.NotNil(t, handlers)
	assert.Equal(t, mockService, handlers.analytics)
	assert.Nil(t, handlers.storage)
	assert.Nil(t, handlers.limiterStore)
}

func TestGetSummary(t *testing.T) {
	caption := "Sunset reel"
	summary := &models.AnalyticsSummary{
		TotalEngagement:       415,
		AverageEngagementRate: 3.44,
		TopPerformingPost: &models.TopPost{
			ID:         "p1",
			Caption:    &caption,
			Engagement: 230,
			Platform:   models.PlatformTikTok,
		},
		EngagementTrend: models.EngagementTrend{Current: 175, Previous: 230, PercentageChange: -23.91},
	}

	mockService := &MockAnalyticsService{}
	mockService.On("Summary", mock.Anything, "user-1").Return(summary, nil)
	handlers := NewHandlers(mockService)

	rr := httptest.NewRecorder()
	handlers.GetSummary(rr, withUser(httptest.NewRequest("GET", "/api/v1/analytics/summary", nil), "user-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, float64(415), body["totalEngagement"])
	assert.Equal(t, 3.44, body["averageEngagementRate"])
	top := body["topPerformingPost"].(map[string]interface{})
	assert.Equal(t, "p1", top["id"])
	trend := body["engagementTrend"].(map[string]interface{})
	assert.Equal(t, -23.91, trend["percentageChange"])

	mockService.AssertExpectations(t)
}

func TestGetSummary_EmptyHasNullTopPost(t *testing.T) {
	mockService := &MockAnalyticsService{}
	mockService.On("Summary", mock.Anything, "user-1").Return(models.NewEmptySummary(), nil)

	rr := httptest.NewRecorder()
	NewHandlers(mockService).GetSummary(rr, withUser(httptest.NewRequest("GET", "/api/v1/analytics/summary", nil), "user-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"totalEngagement":0,"averageEngagementRate":0,"topPerformingPost":null,"engagementTrend":{"current":0,"previous":0,"percentageChange":0}}`,
		rr.Body.String())
}

func TestGetSummary_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "unauthorized",
			err:        analytics.NewUnauthorizedError("user is not authenticated"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   models.ErrorCodeUnauthorized,
			wantMsg:    "user is not authenticated",
		},
		{
			name:       "storage failure hides cause",
			err:        analytics.NewInternalError("failed to fetch posts", errors.New("connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrorCodeInternalError,
			wantMsg:    "failed to fetch posts",
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrorCodeInternalError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAnalyticsService{}
			mockService.On("Summary", mock.Anything, "").Return(nil, tt.err)

			rr := httptest.NewRecorder()
			NewHandlers(mockService).GetSummary(rr, httptest.NewRequest("GET", "/api/v1/analytics/summary", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.NotContains(t, resp.Message, "connection refused")
		})
	}
}

func TestGetDailyMetrics(t *testing.T) {
	rows := []*models.DailyMetric{
		{ID: "m1", UserID: "user-1", Date: "2024-03-01", Engagement: 10, Reach: 100},
		{ID: "m2", UserID: "user-1", Date: "2024-03-02", Engagement: 20, Reach: 200},
	}

	tests := []struct {
		name     string
		query    string
		wantDays int
	}{
		{name: "default range", query: "", wantDays: 30},
		{name: "explicit range", query: "?days=7", wantDays: 7},
		{name: "upper bound", query: "?days=365", wantDays: 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAnalyticsService{}
			mockService.On("DailyMetrics", mock.Anything, &models.DailyMetricsRequest{UserID: "user-1", Days: tt.wantDays}).
				Return(rows, nil)

			rr := httptest.NewRecorder()
			NewHandlers(mockService).GetDailyMetrics(rr, withUser(httptest.NewRequest("GET", "/api/v1/metrics/daily"+tt.query, nil), "user-1"))

			assert.Equal(t, http.StatusOK, rr.Code)
			var got []models.DailyMetric
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			require.Len(t, got, 2)
			assert.Equal(t, "2024-03-01", got[0].Date)
			mockService.AssertExpectations(t)
		})
	}
}

func TestGetDailyMetrics_InvalidDays(t *testing.T) {
	mockService := &MockAnalyticsService{}
	mockService.On("DailyMetrics", mock.Anything, mock.Anything).
		Return(nil, analytics.NewInvalidRequestError("invalid days parameter: must be between 1 and 365", nil))

	for _, days := range []string{"abc", "1.5", "0", "366", "-3"} {
		t.Run(days, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHandlers(mockService).GetDailyMetrics(rr, withUser(httptest.NewRequest("GET", "/api/v1/metrics/daily?days="+days, nil), "user-1"))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, models.ErrorCodeInvalidRequest, resp.Code)
			assert.Contains(t, resp.Message, "between 1 and 365")
		})
	}
}

func TestGetDailyMetrics_EmptyIsArray(t *testing.T) {
	mockService := &MockAnalyticsService{}
	mockService.On("DailyMetrics", mock.Anything, mock.Anything).Return(nil, nil)

	rr := httptest.NewRecorder()
	NewHandlers(mockService).GetDailyMetrics(rr, withUser(httptest.NewRequest("GET", "/api/v1/metrics/daily", nil), "user-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestListPosts(t *testing.T) {
	posted := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		{ID: "p2", UserID: "user-1", Platform: models.PlatformTikTok, PostedAt: posted},
		{ID: "p1", UserID: "user-1", Platform: models.PlatformTikTok, PostedAt: posted.Add(-time.Hour)},
	}

	mockService := &MockAnalyticsService{}
	mockService.On("Posts", mock.Anything, &models.ListPostsRequest{UserID: "user-1", Platform: "tiktok"}).Return(posts, nil)

	rr := httptest.NewRecorder()
	NewHandlers(mockService).ListPosts(rr, withUser(httptest.NewRequest("GET", "/api/v1/posts?platform=tiktok", nil), "user-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []models.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	mockService.AssertExpectations(t)
}

func TestListPosts_InvalidPlatform(t *testing.T) {
	mockService := &MockAnalyticsService{}
	mockService.On("Posts", mock.Anything, mock.Anything).
		Return(nil, analytics.NewInvalidRequestError("unsupported platform: myspace", nil))

	rr := httptest.NewRecorder()
	NewHandlers(mockService).ListPosts(rr, withUser(httptest.NewRequest("GET", "/api/v1/posts?platform=myspace", nil), "user-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.ErrorCodeInvalidRequest, decodeError(t, rr).Code)
}

func TestGetPost(t *testing.T) {
	mockService := &MockAnalyticsService{}
	mockService.On("Post", mock.Anything, "user-1", "p1").Return(&models.Post{ID: "p1", UserID: "user-1"}, nil)
	mockService.On("Post", mock.Anything, "user-1", "missing").Return(nil, analytics.NewNotFoundError("post not found", nil))

	handlers := NewHandlers(mockService)

	t.Run("found", func(t *testing.T) {
		req := mux.SetURLVars(withUser(httptest.NewRequest("GET", "/api/v1/posts/p1", nil), "user-1"), map[string]string{"post_id": "p1"})
		rr := httptest.NewRecorder()
		handlers.GetPost(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got models.Post
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		req := mux.SetURLVars(withUser(httptest.NewRequest("GET", "/api/v1/posts/missing", nil), "user-1"), map[string]string{"post_id": "missing"})
		rr := httptest.NewRecorder()
		handlers.GetPost(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, models.ErrorCodeNotFound, decodeError(t, rr).Code)
	})
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		storageErr     error
		limiterStore   *stubPinger
		wantStatus     int
		wantHealth     string
		wantComponents []string
	}{
		{
			name:           "all healthy",
			limiterStore:   &stubPinger{},
			wantStatus:     http.StatusOK,
			wantHealth:     models.StatusHealthy,
			wantComponents: []string{"storage", "rate_limit_store", "api"},
		},
		{
			name:           "memory limiter has no store",
			wantStatus:     http.StatusOK,
			wantHealth:     models.StatusHealthy,
			wantComponents: []string{"storage", "api"},
		},
		{
			name:           "limiter store down degrades",
			limiterStore:   &stubPinger{err: errors.New("dial tcp: connection refused")},
			wantStatus:     http.StatusOK,
			wantHealth:     models.StatusDegraded,
			wantComponents: []string{"storage", "rate_limit_store", "api"},
		},
		{
			name:           "storage down is unhealthy",
			storageErr:     errors.New("database is locked"),
			limiterStore:   &stubPinger{err: errors.New("down")},
			wantStatus:     http.StatusServiceUnavailable,
			wantHealth:     models.StatusUnhealthy,
			wantComponents: []string{"storage", "rate_limit_store", "api"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []HandlerOption{
				WithStorage(&stubPinger{err: tt.storageErr}),
				WithVersion(version.Info{Version: "v1.2.3", InstanceID: "abc"}),
			}
			if tt.limiterStore != nil {
				opts = append(opts, WithLimiterStore(tt.limiterStore))
			}
			handlers := NewHandlers(&MockAnalyticsService{}, opts...)

			rr := httptest.NewRecorder()
			handlers.HealthCheck(rr, httptest.NewRequest("GET", "/health", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp models.HealthCheckResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantHealth, resp.Status)
			assert.Equal(t, "v1.2.3", resp.Version)
			assert.Equal(t, "abc", resp.InstanceID)
			assert.Len(t, resp.Components, len(tt.wantComponents))
			for _, c := range tt.wantComponents {
				assert.Contains(t, resp.Components, c)
			}
		})
	}
}
