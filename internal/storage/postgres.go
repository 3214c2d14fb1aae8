package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialdash/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	platform        TEXT NOT NULL,
	caption         TEXT,
	thumbnail_url   TEXT,
	media_type      TEXT NOT NULL DEFAULT '',
	posted_at       TIMESTAMPTZ NOT NULL,
	likes           BIGINT NOT NULL DEFAULT 0,
	comments        BIGINT NOT NULL DEFAULT 0,
	shares          BIGINT NOT NULL DEFAULT 0,
	saves           BIGINT NOT NULL DEFAULT 0,
	reach           BIGINT NOT NULL DEFAULT 0,
	impressions     BIGINT NOT NULL DEFAULT 0,
	engagement_rate DOUBLE PRECISION,
	permalink       TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_posts_user_posted ON posts (user_id, posted_at DESC);

CREATE TABLE IF NOT EXISTS daily_metrics (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	date       DATE NOT NULL,
	engagement BIGINT NOT NULL DEFAULT 0,
	reach      BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, date)
);
`

// PostgresStorage implements the Storage interface using a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and ensures the tables exist.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(config.MaxIdleConns, config.MaxOpenConns))
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}
	if config.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func scanPgPost(row pgx.Row) (*models.Post, error) {
	var (
		p                             models.Post
		caption, thumbnail, permalink pgtype.Text
		rate                          pgtype.Float8
	)

	err := row.Scan(&p.ID, &p.UserID, &p.Platform, &caption, &thumbnail, &p.MediaType, &p.PostedAt,
		&p.Likes, &p.Comments, &p.Shares, &p.Saves, &p.Reach, &p.Impressions, &rate, &permalink, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.PostedAt = p.PostedAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.Caption = pgTextPtr(caption)
	p.ThumbnailURL = pgTextPtr(thumbnail)
	p.Permalink = pgTextPtr(permalink)
	p.EngagementRate = pgFloatPtr(rate)

	return &p, nil
}

// Posts returns the user's posts, newest first
func (ps *PostgresStorage) Posts(ctx context.Context, userID, platform string) ([]*models.Post, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = $1 AND ($2 = '' OR platform = $2)
		ORDER BY posted_at DESC`, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPgPost(rows)
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
func (ps *PostgresStorage) GetPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 AND user_id = $2`, postID, userID)

	p, err := scanPgPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// SavePost stores or updates a post (upsert on id)
func (ps *PostgresStorage) SavePost(ctx context.Context, post *models.Post) error {
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			caption = EXCLUDED.caption,
			thumbnail_url = EXCLUDED.thumbnail_url,
			media_type = EXCLUDED.media_type,
			posted_at = EXCLUDED.posted_at,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			reach = EXCLUDED.reach,
			impressions = EXCLUDED.impressions,
			engagement_rate = EXCLUDED.engagement_rate,
			permalink = EXCLUDED.permalink`,
		post.ID, post.UserID, post.Platform, pgText(post.Caption), pgText(post.ThumbnailURL),
		post.MediaType, post.PostedAt,
		post.Likes, post.Comments, post.Shares, post.Saves, post.Reach, post.Impressions,
		pgFloat(post.EngagementRate), pgText(post.Permalink), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save post %s: %w", post.ID, err)
	}
	return nil
}

// DailyMetrics returns the user's rows on or after since, oldest first
func (ps *PostgresStorage) DailyMetrics(ctx context.Context, userID, since string) ([]*models.DailyMetric, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, user_id, to_char(date, 'YYYY-MM-DD'), engagement, reach, created_at
		FROM daily_metrics
		WHERE user_id = $1 AND date >= $2::date
		ORDER BY date ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]*models.DailyMetric, 0)
	for rows.Next() {
		var m models.DailyMetric
		if err := rows.Scan(&m.ID, &m.UserID, &m.Date, &m.Engagement, &m.Reach, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		metrics = append(metrics, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily metrics: %w", err)
	}

	return metrics, nil
}

// SaveDailyMetric stores or updates the user's row for a date
func (ps *PostgresStorage) SaveDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	createdAt := metric.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO daily_metrics (id, user_id, date, engagement, reach, created_at)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		ON CONFLICT (user_id, date) DO UPDATE SET
			engagement = EXCLUDED.engagement,
			reach = EXCLUDED.reach`,
		metric.ID, metric.UserID, metric.Date, metric.Engagement, metric.Reach, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily metric %s: %w", metric.ID, err)
	}
	return nil
}

// Ping verifies the database connection
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
