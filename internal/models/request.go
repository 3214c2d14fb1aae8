package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Daily metrics range limits, in days.
const (
	DefaultMetricDays = 30
	MinMetricDays     = 1
	MaxMetricDays     = 365
)

// PlatformAll is accepted by the posts listing and means no platform filter.
const PlatformAll = "all"

type ListPostsRequest struct {
	UserID   string `json:"user_id"`
	Platform string `json:"platform,omitempty"`
}

func (r *ListPostsRequest) Normalize() {
	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	if r.Platform == PlatformAll {
		r.Platform = ""
	}
}

func (r *ListPostsRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if r.Platform != "" && !slices.Contains(ValidPlatforms, r.Platform) {
		return fmt.Errorf("invalid platform: %s", r.Platform)
	}
	return nil
}

type DailyMetricsRequest struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
}

// ParseDays reads the days query value. An empty value yields the default.
func ParseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultMetricDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid days parameter: must be between %d and %d", MinMetricDays, MaxMetricDays)
	}
	return days, nil
}

func (r *DailyMetricsRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if r.Days < MinMetricDays || r.Days > MaxMetricDays {
		return fmt.Errorf("invalid days parameter: must be between %d and %d", MinMetricDays, MaxMetricDays)
	}
	return nil
}
