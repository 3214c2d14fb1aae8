package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"socialdash/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	platform        TEXT NOT NULL,
	caption         TEXT,
	thumbnail_url   TEXT,
	media_type      TEXT NOT NULL DEFAULT '',
	posted_at       TEXT NOT NULL,
	likes           INTEGER NOT NULL DEFAULT 0,
	comments        INTEGER NOT NULL DEFAULT 0,
	shares          INTEGER NOT NULL DEFAULT 0,
	saves           INTEGER NOT NULL DEFAULT 0,
	reach           INTEGER NOT NULL DEFAULT 0,
	impressions     INTEGER NOT NULL DEFAULT 0,
	engagement_rate REAL,
	permalink       TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_user_posted ON posts (user_id, posted_at);

CREATE TABLE IF NOT EXISTS daily_metrics (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	date       TEXT NOT NULL,
	engagement INTEGER NOT NULL DEFAULT 0,
	reach      INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	UNIQUE (user_id, date)
);
`

const postColumns = `id, user_id, platform, caption, thumbnail_url, media_type, posted_at,
	likes, comments, shares, saves, reach, impressions, engagement_rate, permalink, created_at`

// SQLiteStorage implements the Storage interface on an embedded SQLite database.
// Timestamps are stored as fixed-width UTC text so ORDER BY is chronological.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database and creates the tables if absent.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; an in-memory DSN also needs one shared connection.
	db.SetMaxOpenConns(1)
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row rowScanner) (*models.Post, error) {
	var (
		p                             models.Post
		caption, thumbnail, permalink sql.NullString
		rate                          sql.NullFloat64
		postedAt, createdAt           string
	)

	err := row.Scan(&p.ID, &p.UserID, &p.Platform, &caption, &thumbnail, &p.MediaType, &postedAt,
		&p.Likes, &p.Comments, &p.Shares, &p.Saves, &p.Reach, &p.Impressions, &rate, &permalink, &createdAt)
	if err != nil {
		return nil, err
	}

	if p.PostedAt, err = parseSQLiteTime(postedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	p.Caption = stringPtr(caption)
	p.ThumbnailURL = stringPtr(thumbnail)
	p.Permalink = stringPtr(permalink)
	p.EngagementRate = floatPtr(rate)

	return &p, nil
}

// Posts returns the user's posts, newest first
func (ss *SQLiteStorage) Posts(ctx context.Context, userID, platform string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = ?`
	args := []any{userID}
	if platform != "" {
		query += ` AND platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY posted_at DESC`

	rows, err := ss.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// GetPost retrieves a single post owned by the user
func (ss *SQLiteStorage) GetPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ? AND user_id = ?`, postID, userID)

	p, err := scanSQLitePost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// SavePost stores or updates a post (upsert on id)
func (ss *SQLiteStorage) SavePost(ctx context.Context, post *models.Post) error {
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			caption = excluded.caption,
			thumbnail_url = excluded.thumbnail_url,
			media_type = excluded.media_type,
			posted_at = excluded.posted_at,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			saves = excluded.saves,
			reach = excluded.reach,
			impressions = excluded.impressions,
			engagement_rate = excluded.engagement_rate,
			permalink = excluded.permalink`,
		post.ID, post.UserID, post.Platform, nullString(post.Caption), nullString(post.ThumbnailURL),
		post.MediaType, formatSQLiteTime(post.PostedAt),
		post.Likes, post.Comments, post.Shares, post.Saves, post.Reach, post.Impressions,
		nullFloat(post.EngagementRate), nullString(post.Permalink), formatSQLiteTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save post %s: %w", post.ID, err)
	}
	return nil
}

// DailyMetrics returns the user's rows on or after since, oldest first
func (ss *SQLiteStorage) DailyMetrics(ctx context.Context, userID, since string) ([]*models.DailyMetric, error) {
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, user_id, date, engagement, reach, created_at
		FROM daily_metrics
		WHERE user_id = ? AND date >= ?
		ORDER BY date ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]*models.DailyMetric, 0)
	for rows.Next() {
		var (
			m         models.DailyMetric
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Date, &m.Engagement, &m.Reach, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		if m.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily metrics: %w", err)
	}

	return metrics, nil
}

// SaveDailyMetric stores or updates the user's row for a date
func (ss *SQLiteStorage) SaveDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	createdAt := metric.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO daily_metrics (id, user_id, date, engagement, reach, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			engagement = excluded.engagement,
			reach = excluded.reach`,
		metric.ID, metric.UserID, metric.Date, metric.Engagement, metric.Reach, formatSQLiteTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save daily metric %s: %w", metric.ID, err)
	}
	return nil
}

// Ping verifies the database connection
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
