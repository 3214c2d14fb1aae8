package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"socialdash/internal/models"

	"github.com/jackc/pgx/v5/pgtype"
)

// sqliteTimeLayout is fixed width so TEXT timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullString converts an optional string for database/sql parameters.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// pgText converts an optional string for pgx parameters.
func pgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func pgTextPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func pgFloat(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

func pgFloatPtr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// sortPostsNewestFirst orders posts by posted_at descending. Ties keep insertion order.
func sortPostsNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PostedAt.After(posts[j].PostedAt)
	})
}

// sortMetricsByDate orders daily rows by date ascending. Dates are YYYY-MM-DD so string order is date order.
func sortMetricsByDate(metrics []*models.DailyMetric) {
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Date < metrics[j].Date
	})
}

// matchPost reports whether a post belongs to the user and platform filter.
func matchPost(p *models.Post, userID, platform string) bool {
	return p.UserID == userID && (platform == "" || p.Platform == platform)
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	return &c
}

func copyMetric(m *models.DailyMetric) *models.DailyMetric {
	c := *m
	return &c
}
