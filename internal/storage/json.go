package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"socialdash/internal/models"
)

const defaultJSONCacheTTL = 5 * time.Minute

// jsonDocument is the on-disk layout of the JSON backend.
type jsonDocument struct {
	Posts        []*models.Post        `json:"posts"`
	DailyMetrics []*models.DailyMetric `json:"daily_metrics"`
	SavedAt      time.Time             `json:"saved_at"`
}

// JSONStorage keeps posts and daily metrics in a single JSON file. Reads are
// served from a cached copy that is re-read once the TTL lapses and the file's
// modification time has moved on. Writes replace the file atomically.
type JSONStorage struct {
	path     string
	cacheTTL time.Duration

	mu         sync.RWMutex
	doc        *jsonDocument
	modTime    time.Time
	freshUntil time.Time
}

func NewJSONStorage(config Config) (*JSONStorage, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON storage")
	}

	ttl := defaultJSONCacheTTL
	if config.CacheTTL != "" {
		d, err := time.ParseDuration(config.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache TTL %q: %w", config.CacheTTL, err)
		}
		ttl = d
	}

	j := &JSONStorage{path: config.Path, cacheTTL: ttl}

	_, err := os.Stat(j.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		empty := &jsonDocument{Posts: []*models.Post{}, DailyMetrics: []*models.DailyMetric{}}
		if err := j.persist(empty); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", j.path, err)
	default:
		if err := j.refresh(); err != nil {
			return nil, err
		}
	}

	return j, nil
}

// refresh reloads the document when the cache window has closed and the file
// changed underneath us.
func (j *JSONStorage) refresh() error {
	j.mu.RLock()
	fresh := j.doc != nil && time.Now().Before(j.freshUntil)
	j.mu.RUnlock()
	if fresh {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.doc != nil && time.Now().Before(j.freshUntil) {
		return nil
	}

	info, err := os.Stat(j.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", j.path, err)
	}
	if j.doc == nil || info.ModTime().After(j.modTime) {
		raw, err := os.ReadFile(j.path)
		if err != nil {
			return fmt.Errorf("read %s: %w", j.path, err)
		}
		var doc jsonDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", j.path, err)
		}
		j.doc = &doc
		j.modTime = info.ModTime()
	}
	j.freshUntil = time.Now().Add(j.cacheTTL)
	return nil
}

// persist writes doc through a temp file and rename, and only then makes it
// the cached document. Caller holds the write lock, or is the constructor.
func (j *JSONStorage) persist(doc *jsonDocument) error {
	doc.SavedAt = time.Now().UTC()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".socialdash-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace %s: %w", j.path, err)
	}

	j.doc = doc
	if info, err := os.Stat(j.path); err == nil {
		j.modTime = info.ModTime()
	}
	j.freshUntil = time.Now().Add(j.cacheTTL)
	return nil
}

func (j *JSONStorage) view(fn func(doc *jsonDocument)) error {
	if err := j.refresh(); err != nil {
		return err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	fn(j.doc)
	return nil
}

func (j *JSONStorage) mutate(fn func(doc *jsonDocument)) error {
	if err := j.refresh(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	// fn only replaces slice slots, so cloning the slices is enough to keep a
	// failed write out of the cache.
	next := &jsonDocument{
		Posts:        slices.Clone(j.doc.Posts),
		DailyMetrics: slices.Clone(j.doc.DailyMetrics),
	}
	fn(next)
	return j.persist(next)
}

func (j *JSONStorage) Posts(_ context.Context, userID, platform string) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	err := j.view(func(doc *jsonDocument) {
		for _, p := range doc.Posts {
			if matchPost(p, userID, platform) {
				posts = append(posts, copyPost(p))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sortPostsNewestFirst(posts)
	return posts, nil
}

func (j *JSONStorage) GetPost(_ context.Context, userID, postID string) (*models.Post, error) {
	var found *models.Post
	err := j.view(func(doc *jsonDocument) {
		i := slices.IndexFunc(doc.Posts, func(p *models.Post) bool {
			return p.ID == postID && p.UserID == userID
		})
		if i >= 0 {
			found = copyPost(doc.Posts[i])
		}
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return found, nil
}

func (j *JSONStorage) SavePost(_ context.Context, post *models.Post) error {
	return j.mutate(func(doc *jsonDocument) {
		i := slices.IndexFunc(doc.Posts, func(p *models.Post) bool { return p.ID == post.ID })
		if i >= 0 {
			doc.Posts[i] = copyPost(post)
			return
		}
		doc.Posts = append(doc.Posts, copyPost(post))
	})
}

func (j *JSONStorage) DailyMetrics(_ context.Context, userID, since string) ([]*models.DailyMetric, error) {
	metrics := make([]*models.DailyMetric, 0)
	err := j.view(func(doc *jsonDocument) {
		for _, m := range doc.DailyMetrics {
			if m.UserID == userID && m.Date >= since {
				metrics = append(metrics, copyMetric(m))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sortMetricsByDate(metrics)
	return metrics, nil
}

// SaveDailyMetric upserts on (user, date).
func (j *JSONStorage) SaveDailyMetric(_ context.Context, metric *models.DailyMetric) error {
	return j.mutate(func(doc *jsonDocument) {
		i := slices.IndexFunc(doc.DailyMetrics, func(m *models.DailyMetric) bool {
			return m.UserID == metric.UserID && m.Date == metric.Date
		})
		if i < 0 {
			doc.DailyMetrics = append(doc.DailyMetrics, copyMetric(metric))
			return
		}
		doc.DailyMetrics[i] = mergeMetric(doc.DailyMetrics[i], metric)
	})
}

func (j *JSONStorage) Ping(_ context.Context) error {
	if _, err := os.Stat(j.path); err != nil {
		return fmt.Errorf("json storage unavailable: %w", err)
	}
	return nil
}

// Close drops the cached document; the file is left in place.
func (j *JSONStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc = nil
	j.freshUntil = time.Time{}
	return nil
}
