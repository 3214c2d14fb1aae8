// Package models - Social media post and daily metric data models.
// This file defines the records the dashboard reads from storage.
//
// Data Notes:
// - Posts belong to exactly one user and one platform
// - EngagementRate is optional; platforms that do not report reach leave it nil
// - DailyMetric rows are date-only aggregates, one per user per day
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Platform constants
const (
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
)

// Media type constants
const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeCarousel = "carousel"
)

// DateLayout is the wire and storage format for DailyMetric.Date.
const DateLayout = "2006-01-02"

var (
	ValidPlatforms  = []string{PlatformInstagram, PlatformTikTok}
	ValidMediaTypes = []string{MediaTypeImage, MediaTypeVideo, MediaTypeCarousel}
)

// Post is a single published post with its engagement counters.
type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Platform       string    `json:"platform"`
	Caption        *string   `json:"caption"`
	ThumbnailURL   *string   `json:"thumbnail_url"`
	MediaType      string    `json:"media_type"`
	PostedAt       time.Time `json:"posted_at"`
	Likes          int64     `json:"likes"`
	Comments       int64     `json:"comments"`
	Shares         int64     `json:"shares"`
	Saves          int64     `json:"saves"`
	Reach          int64     `json:"reach"`
	Impressions    int64     `json:"impressions"`
	EngagementRate *float64  `json:"engagement_rate"`
	Permalink      *string   `json:"permalink"`
	CreatedAt      time.Time `json:"created_at"`
}

// Engagement is likes plus comments plus shares. Saves are not counted.
func (p *Post) Engagement() int64 {
	return p.Likes + p.Comments + p.Shares
}

func (p *Post) Validate() error {
	if p.ID == "" {
		return errors.New("post ID is required")
	}

	if p.UserID == "" {
		return errors.New("user ID is required")
	}

	if !slices.Contains(ValidPlatforms, p.Platform) {
		return fmt.Errorf("invalid platform: %s", p.Platform)
	}

	if p.MediaType != "" && !slices.Contains(ValidMediaTypes, p.MediaType) {
		return fmt.Errorf("invalid media type: %s", p.MediaType)
	}

	if p.PostedAt.IsZero() {
		return errors.New("posted_at is required")
	}

	if p.Likes < 0 || p.Comments < 0 || p.Shares < 0 || p.Saves < 0 || p.Reach < 0 || p.Impressions < 0 {
		return errors.New("counters cannot be negative")
	}

	return nil
}

func (p *Post) Normalize() {
	p.Platform = strings.ToLower(strings.TrimSpace(p.Platform))
	p.MediaType = strings.ToLower(strings.TrimSpace(p.MediaType))
	p.PostedAt = p.PostedAt.UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// DailyMetric is one user's aggregate engagement and reach for a calendar day.
type DailyMetric struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	Engagement int64     `json:"engagement"`
	Reach      int64     `json:"reach"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *DailyMetric) Validate() error {
	if m.ID == "" {
		return errors.New("metric ID is required")
	}

	if m.UserID == "" {
		return errors.New("user ID is required")
	}

	if _, err := time.Parse(DateLayout, m.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", m.Date, err)
	}

	if m.Engagement < 0 || m.Reach < 0 {
		return errors.New("counters cannot be negative")
	}

	return nil
}
