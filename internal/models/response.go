package models

import (
	"net/http"
	"time"
)

// AnalyticsSummary is the headline card data for one user. Field names are
// camelCase because the dashboard client reads them that way.
type AnalyticsSummary struct {
	TotalEngagement       int64           `json:"totalEngagement"`
	AverageEngagementRate float64         `json:"averageEngagementRate"`
	TopPerformingPost     *TopPost        `json:"topPerformingPost"`
	EngagementTrend       EngagementTrend `json:"engagementTrend"`
}

type TopPost struct {
	ID         string  `json:"id"`
	Caption    *string `json:"caption"`
	Engagement int64   `json:"engagement"`
	Platform   string  `json:"platform"`
}

// EngagementTrend compares the last seven days with the seven before them.
type EngagementTrend struct {
	Current          int64   `json:"current"`
	Previous         int64   `json:"previous"`
	PercentageChange float64 `json:"percentageChange"`
}

// NewEmptySummary is the summary for a user with no posts.
func NewEmptySummary() *AnalyticsSummary {
	return &AnalyticsSummary{}
}

func NewTopPost(p *Post) *TopPost {
	return &TopPost{
		ID:         p.ID,
		Caption:    p.Caption,
		Engagement: p.Engagement(),
		Platform:   p.Platform,
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
}

const (
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeBadRequest         = "BAD_REQUEST"
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"
	ErrorCodeInternalError      = "INTERNAL_ERROR"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// WithDetail adds one key to Details and returns the receiver.
func (e *ErrorResponse) WithDetail(key, value string) *ErrorResponse {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// severity orders statuses so the overall status is the worst component's.
var severity = map[string]int{
	StatusHealthy:   0,
	StatusUnknown:   1,
	StatusDegraded:  2,
	StatusUnhealthy: 3,
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	InstanceID string                     `json:"instance_id,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

func NewHealthCheckResponse() *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent records one dependency and lowers the overall status if the
// component is worse than anything seen so far.
func (h *HealthCheckResponse) AddComponent(name, status, message string, latency time.Duration) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		LatencyMS: latency.Milliseconds(),
		CheckedAt: time.Now().UTC(),
	}
	if severity[status] > severity[h.Status] {
		h.Status = status
	}
}

// HTTPStatus is 503 when unhealthy; degraded still answers 200 so load
// balancers keep routing.
func (h *HealthCheckResponse) HTTPStatus() int {
	if h.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
